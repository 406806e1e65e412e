// imagectl is the administrative CLI for the image service: it manages
// account tiers and users directly in the service database and issues
// bearer tokens. It reads the same environment (and .env file) as the server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/leca/tiered-images/internal/auth"
	"github.com/leca/tiered-images/internal/config"
	"github.com/leca/tiered-images/internal/database"
	"github.com/leca/tiered-images/internal/model"
	"github.com/leca/tiered-images/internal/tier"
)

const usage = `imagectl manages account tiers, users and tokens.

Usage:
  imagectl tier list
  imagectl tier create --name NAME [--size1 N] [--size2 N] [--link] [--ttl SECONDS]
  imagectl tier update --name NAME [--size1 N] [--size2 N] [--link] [--ttl SECONDS]
  imagectl user create --username NAME --tier TIER
  imagectl user set-tier --username NAME --tier TIER
  imagectl token issue --username NAME [--ttl DURATION]

A size or ttl of 0 clears it on update.
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if args[0] == "token" {
		if args[1] != "issue" {
			return fmt.Errorf("%w: unknown token command %q", errUsage, args[1])
		}
		return issueToken(cfg, args[2:], out)
	}

	db, err := database.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	tiers := tier.NewRegistry(db)

	switch args[0] + " " + args[1] {
	case "tier list":
		list, err := tiers.List(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, list)
	case "tier create":
		return createTier(ctx, tiers, args[2:], out)
	case "tier update":
		return updateTier(ctx, tiers, args[2:], out)
	case "user create":
		return createUser(ctx, db, tiers, args[2:], out)
	case "user set-tier":
		return setUserTier(ctx, db, tiers, args[2:], out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0]+" "+args[1])
	}
}

// tierFlags binds the tier attribute flags shared by create and update.
type tierFlags struct {
	set   *pflag.FlagSet
	name  string
	size1 int
	size2 int
	link  bool
	ttl   int
}

func parseTierFlags(cmd string, args []string) (*tierFlags, error) {
	f := &tierFlags{set: pflag.NewFlagSet(cmd, pflag.ContinueOnError)}
	f.set.StringVar(&f.name, "name", "", "tier name")
	f.set.IntVar(&f.size1, "size1", 0, "primary thumbnail size in pixels")
	f.set.IntVar(&f.size2, "size2", 0, "secondary thumbnail size in pixels")
	f.set.BoolVar(&f.link, "link", false, "grant a permanent link to the original")
	f.set.IntVar(&f.ttl, "ttl", 0, "grant an expiring link valid for this many seconds")
	if err := f.set.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	if f.name == "" {
		return nil, fmt.Errorf("%w: --name is required", errUsage)
	}
	return f, nil
}

// apply copies every flag given on the command line onto t.
func (f *tierFlags) apply(t *model.AccountTier) {
	optional := func(flag string, v int, dst **int) {
		if !f.set.Changed(flag) {
			return
		}
		if v == 0 {
			*dst = nil
			return
		}
		*dst = &v
	}
	optional("size1", f.size1, &t.ThumbnailSize1)
	optional("size2", f.size2, &t.ThumbnailSize2)
	optional("ttl", f.ttl, &t.LinkExpirationTime)
	if f.set.Changed("link") {
		t.LinkToOriginal = f.link
	}
}

func createTier(ctx context.Context, tiers *tier.Registry, args []string, out io.Writer) error {
	f, err := parseTierFlags("tier create", args)
	if err != nil {
		return err
	}
	t := &model.AccountTier{Name: f.name}
	f.apply(t)
	if err := tiers.Create(ctx, t); err != nil {
		return err
	}
	return printJSON(out, t)
}

func updateTier(ctx context.Context, tiers *tier.Registry, args []string, out io.Writer) error {
	f, err := parseTierFlags("tier update", args)
	if err != nil {
		return err
	}
	t, err := tiers.GetByName(ctx, f.name)
	if err != nil {
		return err
	}
	f.apply(t)
	if err := tiers.Update(ctx, t); err != nil {
		return err
	}
	return printJSON(out, t)
}

func parseUserFlags(cmd string, args []string) (username, tierName string, err error) {
	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	fs.StringVar(&username, "username", "", "user name")
	fs.StringVar(&tierName, "tier", "", "account tier name")
	if err := fs.Parse(args); err != nil {
		return "", "", fmt.Errorf("%w: %w", errUsage, err)
	}
	if username == "" || tierName == "" {
		return "", "", fmt.Errorf("%w: --username and --tier are required", errUsage)
	}
	return username, tierName, nil
}

func createUser(ctx context.Context, db database.Database, tiers *tier.Registry, args []string, out io.Writer) error {
	username, tierName, err := parseUserFlags("user create", args)
	if err != nil {
		return err
	}
	t, err := tiers.GetByName(ctx, tierName)
	if err != nil {
		return err
	}
	u := &model.User{
		ID:            uuid.New().String(),
		Username:      username,
		AccountTierID: t.ID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.CreateUser(ctx, u); err != nil {
		return err
	}
	return printJSON(out, u)
}

func setUserTier(ctx context.Context, db database.Database, tiers *tier.Registry, args []string, out io.Writer) error {
	username, tierName, err := parseUserFlags("user set-tier", args)
	if err != nil {
		return err
	}
	t, err := tiers.GetByName(ctx, tierName)
	if err != nil {
		return err
	}
	u, err := db.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user %s: %w", username, err)
	}
	if err := db.SetUserTier(ctx, u.ID, t.ID); err != nil {
		return err
	}
	u.AccountTierID = t.ID
	return printJSON(out, u)
}

func issueToken(cfg *config.Config, args []string, out io.Writer) error {
	var username string
	var ttl time.Duration
	fs := pflag.NewFlagSet("token issue", pflag.ContinueOnError)
	fs.StringVar(&username, "username", "", "user the token identifies")
	fs.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if username == "" {
		return fmt.Errorf("%w: --username is required", errUsage)
	}

	token, err := auth.NewAuthenticator(cfg.JWTSecret).Issue(username, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
