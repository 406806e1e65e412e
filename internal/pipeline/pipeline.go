// Package pipeline turns an uploaded original into its tier's derivative set
// and commits the image record only once every derivative is durable.
package pipeline

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leca/tiered-images/internal/database"
	"github.com/leca/tiered-images/internal/imageproc"
	"github.com/leca/tiered-images/internal/model"
	"github.com/leca/tiered-images/internal/signer"
	"github.com/leca/tiered-images/internal/storage"
	"github.com/leca/tiered-images/internal/tier"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const defaultStepTimeout = 30 * time.Second

// Options tune a Pipeline. Zero values pick defaults.
type Options struct {
	// Workers bounds concurrent codec work across all uploads.
	Workers int
	// StepTimeout bounds each derivative step, storage write included.
	StepTimeout time.Duration
	// MaxPixels rejects originals whose header declares more pixels.
	// Zero disables the check.
	MaxPixels int64
	// Now returns the creation time of new images.
	Now func() time.Time
}

// Pipeline produces derivatives and commits image records.
type Pipeline struct {
	db          database.Database
	tiers       *tier.Registry
	store       storage.Storage
	signer      *signer.Signer
	sem         *semaphore.Weighted
	stepTimeout time.Duration
	maxPixels   int64
	now         func() time.Time
	newID       func() string
}

func New(db database.Database, tiers *tier.Registry, store storage.Storage, s *signer.Signer, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = defaultStepTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		db:          db,
		tiers:       tiers,
		store:       store,
		signer:      s,
		sem:         semaphore.NewWeighted(int64(opts.Workers)),
		stepTimeout: opts.StepTimeout,
		maxPixels:   opts.MaxPixels,
		now:         opts.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// Job identifies where the derivatives of one upload are stored.
type Job struct {
	OwnerID     string
	ImageID     string
	OriginalRef string
}

func (j Job) thumbnailRef(n int) string {
	return fmt.Sprintf("thumbnails/%s/%s/thumbnail_%d.jpg", j.OwnerID, j.ImageID, n)
}

// ProduceDerivatives decodes original and creates every derivative t grants:
// up to two JPEG thumbnails and the link to the original. The thumbnail and
// link steps run concurrently. On failure, thumbnails already written are
// removed and no partial set is returned.
func (p *Pipeline) ProduceDerivatives(ctx context.Context, job Job, original []byte, t *model.AccountTier, createdAt time.Time) (model.DerivativeSet, error) {
	if t == nil {
		return model.DerivativeSet{}, model.ErrTierNotFound
	}
	policy := tier.ResolvePolicy(t)

	src, err := p.decode(ctx, original)
	if err != nil {
		return model.DerivativeSet{}, err
	}

	var (
		set     model.DerivativeSet
		written = &writtenKeys{}
	)

	g, gctx := errgroup.WithContext(ctx)
	if policy.PrimarySize > 0 {
		g.Go(func() error {
			ref, err := p.thumbnail(gctx, src, policy.PrimarySize, job.thumbnailRef(1), written)
			set.Thumbnail1Ref = ref
			return err
		})
	}
	if policy.SecondarySize > 0 {
		g.Go(func() error {
			ref, err := p.thumbnail(gctx, src, policy.SecondarySize, job.thumbnailRef(2), written)
			set.Thumbnail2Ref = ref
			return err
		})
	}
	g.Go(func() error {
		link, expiresAt, err := p.resolveLink(policy, job.OriginalRef, createdAt)
		set.OriginalLink = link
		set.LinkExpiresAt = expiresAt
		return err
	})

	if err := g.Wait(); err != nil {
		p.rollback(written.list())
		return model.DerivativeSet{}, err
	}
	return set, nil
}

// decode holds a worker slot while the original is decoded.
func (p *Pipeline) decode(ctx context.Context, original []byte) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	defer cancel()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("decode: %w: %w", model.ErrArtifactWriteFailed, err)
	}
	defer p.sem.Release(1)

	src, _, err := imageproc.Decode(original, p.maxPixels)
	return src, err
}

// thumbnail resizes src into a size x size box, encodes it and stores it under ref.
func (p *Pipeline) thumbnail(ctx context.Context, src image.Image, size int, ref string, written *writtenKeys) (*string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	defer cancel()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("thumbnail %s: %w: %w", ref, model.ErrArtifactWriteFailed, err)
	}
	data, err := imageproc.MakeThumbnail(src, size)
	p.sem.Release(1)
	if err != nil {
		return nil, fmt.Errorf("thumbnail %s: %w", ref, err)
	}

	if err := p.put(ctx, ref, data); err != nil {
		return nil, err
	}
	written.add(ref)
	return &ref, nil
}

// resolveLink applies the link precedence: expiring, then permanent, then none.
func (p *Pipeline) resolveLink(policy tier.Policy, originalRef string, createdAt time.Time) (*string, *time.Time, error) {
	base := p.store.URL(originalRef)
	switch policy.Link {
	case tier.LinkExpiring:
		signed, err := p.signer.Sign(base, policy.TTLSeconds, createdAt)
		if err != nil {
			return nil, nil, fmt.Errorf("sign original link: %w", err)
		}
		expiresAt := createdAt.Add(time.Duration(policy.TTLSeconds) * time.Second)
		return &signed, &expiresAt, nil
	case tier.LinkPermanent:
		return &base, nil, nil
	default:
		return nil, nil, nil
	}
}

// put writes data under key, bounded by the step timeout carried in ctx.
func (p *Pipeline) put(ctx context.Context, key string, data []byte) error {
	if _, err := p.store.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("store %s: %w: %w", key, model.ErrArtifactWriteFailed, err)
	}
	return nil
}

// confirm checks that every written object is readable before the record
// that references it is committed.
func (p *Pipeline) confirm(ctx context.Context, keys []string) error {
	for _, key := range keys {
		ok, err := p.store.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("confirm %s: %w: %w", key, model.ErrArtifactWriteFailed, err)
		}
		if !ok {
			return fmt.Errorf("confirm %s: object missing after write: %w", key, model.ErrArtifactWriteFailed)
		}
	}
	return nil
}

// rollback removes objects written by an upload that will not be committed.
// It runs detached from the request context so cancellation does not leak objects.
func (p *Pipeline) rollback(keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.stepTimeout)
	defer cancel()
	for _, key := range keys {
		if err := p.store.Delete(ctx, key); err != nil {
			slog.Warn("rollback: failed to delete object", "key", key, "error", err)
		}
	}
}

// UploadRequest is one original submitted by an authenticated user.
type UploadRequest struct {
	OwnerID  string
	Filename string
	Data     []byte
}

// Upload stores the original, produces its derivatives under the owner's
// current tier and commits the image record. The record becomes visible
// only after every write succeeded; on any failure nothing is committed and
// written objects are removed.
func (p *Pipeline) Upload(ctx context.Context, req UploadRequest) (*model.Image, error) {
	user, err := p.db.GetUser(ctx, req.OwnerID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("owner %s: %w", req.OwnerID, model.ErrUnauthorized)
		}
		return nil, fmt.Errorf("load owner: %w", err)
	}

	t, err := p.tiers.GetByID(ctx, user.AccountTierID)
	if err != nil {
		slog.Error("upload rejected: user has no valid tier", "user_id", user.ID, "tier_id", user.AccountTierID, "error", err)
		return nil, err
	}

	format := imageproc.DetectFormat(req.Data)
	imageID := p.newID()
	job := Job{
		OwnerID:     user.ID,
		ImageID:     imageID,
		OriginalRef: path.Join("originals", user.ID, imageID, "original"+imageproc.Extension(format)),
	}
	createdAt := p.now().UTC()

	set, err := p.ProduceDerivatives(ctx, job, req.Data, t, createdAt)
	if err != nil {
		return nil, err
	}
	refs := derivativeRefs(set)

	putCtx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	written := refs
	err = p.put(putCtx, job.OriginalRef, req.Data)
	if err == nil {
		written = append(written, job.OriginalRef)
		err = p.confirm(putCtx, written)
	}
	cancel()
	if err != nil {
		p.rollback(written)
		return nil, err
	}

	sum := blake3.Sum256(req.Data)
	img := &model.Image{
		ID:            imageID,
		OwnerID:       user.ID,
		AccountTierID: t.ID,
		Filename:      sanitizeFilename(req.Filename),
		Checksum:      hex.EncodeToString(sum[:]),
		OriginalRef:   job.OriginalRef,
		CreatedAt:     createdAt,
	}
	img.Apply(set)

	if err := p.db.CreateImage(ctx, img); err != nil {
		p.rollback(written)
		return nil, fmt.Errorf("commit image: %w", err)
	}

	slog.Info("image uploaded",
		"image_id", img.ID,
		"owner_id", img.OwnerID,
		"tier", t.Name,
		"thumbnail_1", img.Thumbnail1Ref != nil,
		"thumbnail_2", img.Thumbnail2Ref != nil,
		"link", tier.ResolvePolicy(t).Link.String(),
	)
	return img, nil
}

func derivativeRefs(set model.DerivativeSet) []string {
	var refs []string
	for _, ref := range []*string{set.Thumbnail1Ref, set.Thumbnail2Ref} {
		if ref != nil {
			refs = append(refs, *ref)
		}
	}
	return refs
}

// sanitizeFilename keeps only the base name of a client-supplied file name.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// writtenKeys records storage keys written by concurrent steps.
type writtenKeys struct {
	mu   sync.Mutex
	keys []string
}

func (w *writtenKeys) add(key string) {
	w.mu.Lock()
	w.keys = append(w.keys, key)
	w.mu.Unlock()
}

func (w *writtenKeys) list() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.keys...)
}
