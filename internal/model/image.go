package model

import "time"

// AccountTier is a named policy controlling which derivatives an upload gets.
// Optional sizes and the link TTL are nil when the tier does not grant them.
type AccountTier struct {
	ID                 int64  `json:"id" yaml:"-"`
	Name               string `json:"name" yaml:"name"`
	ThumbnailSize1     *int   `json:"thumbnail_size_1" yaml:"thumbnail_size_1"`
	ThumbnailSize2     *int   `json:"thumbnail_size_2" yaml:"thumbnail_size_2"`
	LinkToOriginal     bool   `json:"link_to_original" yaml:"link_to_original"`
	LinkExpirationTime *int   `json:"link_expiration_time" yaml:"link_expiration_time"`
}

// Validate checks that the tier has a name and that every set size or TTL is positive.
func (t *AccountTier) Validate() error {
	if t.Name == "" {
		return ErrInvalidTier
	}
	for _, v := range []*int{t.ThumbnailSize1, t.ThumbnailSize2, t.LinkExpirationTime} {
		if v != nil && *v <= 0 {
			return ErrInvalidTier
		}
	}
	return nil
}

// User is an account that can upload images. AccountTierID is read once per upload.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	AccountTierID int64     `json:"account_tier"`
	CreatedAt     time.Time `json:"-"`
}

// Image is one uploaded original and the derivatives resolved for it at creation.
// Derivative fields are never modified after the record is stored.
type Image struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner"`
	AccountTierID int64      `json:"account_tier"`
	Filename      string     `json:"filename"`
	Checksum      string     `json:"checksum"`
	OriginalRef   string     `json:"-"`
	Thumbnail1Ref *string    `json:"-"`
	Thumbnail2Ref *string    `json:"-"`
	OriginalLink  *string    `json:"-"`
	LinkExpiresAt *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Apply copies the derivative fields of d onto the image.
func (img *Image) Apply(d DerivativeSet) {
	img.Thumbnail1Ref = d.Thumbnail1Ref
	img.Thumbnail2Ref = d.Thumbnail2Ref
	img.OriginalLink = d.OriginalLink
	img.LinkExpiresAt = d.LinkExpiresAt
}

// HasPermanentLink reports whether the original may be fetched without a signature.
func (img *Image) HasPermanentLink() bool {
	return img.OriginalLink != nil && img.LinkExpiresAt == nil
}

// DerivativeSet is the complete output of derivative production for one upload.
type DerivativeSet struct {
	Thumbnail1Ref *string
	Thumbnail2Ref *string
	OriginalLink  *string
	LinkExpiresAt *time.Time
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID   string
	Username string
}
