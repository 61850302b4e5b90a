// package models defines the data model for the ytpod client
package models

import (
	"strings"
	"time"
)

// Model defines the base interface for persistent local models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for local data access operations.
type Repository[T Model] interface {
	Create(model T) error     // Create inserts a new model into the database
	Get(id string) (T, error) // Get retrieves a model by its ID
	Update(model T) error     // Update modifies an existing model in the database
	Delete(id string) error   // Delete removes a model from the database by its ID
	List() ([]T, error)       // List retrieves all live models
}

// pbLayout is the datetime layout PocketBase uses in record JSON.
const pbLayout = "2006-01-02 15:04:05.000Z"

// DateTime is a PocketBase datetime field. The zero value encodes as "".
type DateTime struct {
	time.Time
}

// UnmarshalJSON accepts PocketBase datetimes, RFC 3339 and empty strings.
func (d *DateTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(pbLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return err
		}
	}
	d.Time = t.UTC()
	return nil
}

// MarshalJSON writes the PocketBase layout.
func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.UTC().Format(pbLayout) + `"`), nil
}

// MarshalYAML writes the PocketBase layout.
func (d DateTime) MarshalYAML() (any, error) {
	if d.IsZero() {
		return "", nil
	}
	return d.UTC().Format(pbLayout), nil
}

// FormatFilterTime renders t the way PocketBase filters compare datetimes.
func FormatFilterTime(t time.Time) string {
	return t.UTC().Format(pbLayout)
}

// Record holds the system fields every PocketBase record carries.
type Record struct {
	ID             string   `json:"id" yaml:"id"`
	CollectionID   string   `json:"collectionId" yaml:"-"`
	CollectionName string   `json:"collectionName" yaml:"-"`
	Created        DateTime `json:"created" yaml:"created"`
	Updated        DateTime `json:"updated" yaml:"updated"`
}

// FileRef locates a file field on a record for URL construction.
type FileRef struct {
	CollectionID string
	RecordID     string
	Filename     string
}

// Ref returns a [FileRef] for filename on r.
func (r Record) Ref(filename string) FileRef {
	return FileRef{CollectionID: r.CollectionID, RecordID: r.ID, Filename: filename}
}
