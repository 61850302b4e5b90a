package models

import (
	"encoding/json"
	"fmt"
)

// ItemType tags the [Item] union.
type ItemType string

const (
	ItemTypeURL    ItemType = "url"
	ItemTypeUpload ItemType = "upload"
)

// Item is a podcast episode: a [*UrlItem] or an [*UploadItem].
type Item interface {
	Pollable
	Type() ItemType
	Base() *ItemBase
	// Audio returns the playable file and its size once the item has one.
	Audio() (ref FileRef, size int64, ok bool)
	// DisplayTitle prefers the item title, then the underlying file's title.
	DisplayTitle() string
	Duration() float64
}

// ItemBase holds fields common to both item kinds.
type ItemBase struct {
	Record  `yaml:",inline"`
	Kind    ItemType   `json:"type" yaml:"type"`
	Podcast string     `json:"podcast" yaml:"podcast"`
	Status  ItemStatus `json:"status" yaml:"status"`
	Title   string     `json:"title" yaml:"title,omitempty"`
	Error   string     `json:"error" yaml:"error,omitempty"`
	User    string     `json:"user" yaml:"-"`
}

func (b *ItemBase) Base() *ItemBase { return b }
func (b *ItemBase) Type() ItemType  { return b.Kind }
func (b *ItemBase) Terminal() bool  { return b.Status.Terminal() }

// UrlItem is an episode converted from a YouTube URL.
type UrlItem struct {
	ItemBase   `yaml:",inline"`
	URL        string    `json:"url" yaml:"url"`
	DownloadID string    `json:"download" yaml:"-"`
	Download   *Download `json:"-" yaml:"download,omitempty"`
}

func (i *UrlItem) Audio() (FileRef, int64, bool) {
	if i.Download == nil || i.Download.File == "" {
		return FileRef{}, 0, false
	}
	return i.Download.Ref(i.Download.File), i.Download.Size, true
}

func (i *UrlItem) DisplayTitle() string {
	switch {
	case i.Title != "":
		return i.Title
	case i.Download != nil && i.Download.Title != "":
		return i.Download.Title
	default:
		return i.URL
	}
}

func (i *UrlItem) Duration() float64 {
	if i.Download == nil {
		return 0
	}
	return i.Download.Duration
}

// UploadItem is an episode backed by a user-uploaded audio file.
type UploadItem struct {
	ItemBase `yaml:",inline"`
	UploadID string  `json:"upload" yaml:"-"`
	Upload   *Upload `json:"-" yaml:"upload,omitempty"`
}

func (i *UploadItem) Audio() (FileRef, int64, bool) {
	if i.Upload == nil || i.Upload.File == "" {
		return FileRef{}, 0, false
	}
	return i.Upload.Ref(i.Upload.File), i.Upload.Size, true
}

func (i *UploadItem) DisplayTitle() string {
	if i.Title != "" || i.Upload == nil {
		return i.Title
	}
	return i.Upload.Title
}

func (i *UploadItem) Duration() float64 {
	if i.Upload == nil {
		return 0
	}
	return i.Upload.Duration
}

var (
	_ Item = (*UrlItem)(nil)
	_ Item = (*UploadItem)(nil)
)

type itemExpand struct {
	Expand struct {
		Download *Download `json:"download"`
		Upload   *Upload   `json:"upload"`
	} `json:"expand"`
}

// DecodeItem decodes an items record with its expanded download/upload into the concrete union member.
func DecodeItem(data []byte) (Item, error) {
	var tag struct {
		Type ItemType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("failed to decode item type: %w", err)
	}

	var exp itemExpand
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("failed to decode item expand: %w", err)
	}

	switch tag.Type {
	case ItemTypeURL:
		item := &UrlItem{}
		if err := json.Unmarshal(data, item); err != nil {
			return nil, fmt.Errorf("failed to decode url item: %w", err)
		}
		item.Download = exp.Expand.Download
		return item, nil
	case ItemTypeUpload:
		item := &UploadItem{}
		if err := json.Unmarshal(data, item); err != nil {
			return nil, fmt.Errorf("failed to decode upload item: %w", err)
		}
		item.Upload = exp.Expand.Upload
		return item, nil
	default:
		return nil, fmt.Errorf("unknown item type %q", tag.Type)
	}
}

// DecodeItems decodes a list of raw item records, preserving order.
func DecodeItems(raw []json.RawMessage) ([]Item, error) {
	items := make([]Item, 0, len(raw))
	for _, r := range raw {
		item, err := DecodeItem(r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
