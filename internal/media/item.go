package media

import (
	"fmt"
	"path"
	"strings"

	"gdrive/internal/config"
	"gdrive/internal/services"
	"gdrive/internal/titlecache"
)

// Kind tags the Item variant.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindEpisode Kind = "episode"
)

// cacheKind maps the variant onto the title cache namespace.
func (k Kind) cacheKind() titlecache.Kind {
	if k == KindEpisode {
		return titlecache.KindSeries
	}
	return titlecache.KindMovie
}

// File describes the remote object an Item was built from.
type File struct {
	ID        string
	Name      string
	Encrypted bool
}

// Video is the scraped description of a media file.
type Video struct {
	Title    string
	Year     string
	Language string
	// Season and Episodes are only used by episodes. Multi-episode files
	// list every episode in file order.
	Season   int
	Episodes []int
}

// Item is a remote media file that is either a movie or an episode. The
// episode fields are only meaningful when Kind is KindEpisode.
type Item struct {
	Kind       Kind
	RemoteID   string
	RemoteName string
	Extension  string
	Title      string
	Year       string
	Language   string
	Encrypted  bool
	Metadata   Metadata
	Prefix     []string
	Suffix     []string

	Season   int
	Episodes []int
}

// NewItem builds an Item from remote file data, scraped video data, and the
// configured decoration tags.
func NewItem(kind Kind, file File, video Video, metadata Metadata, naming config.Naming) (*Item, error) {
	switch kind {
	case KindMovie, KindEpisode:
	default:
		return nil, services.Wrap(services.ErrValidation, "media", "new_item", fmt.Sprintf("unknown media kind %q", string(kind)), nil)
	}
	if strings.TrimSpace(file.Name) == "" {
		return nil, services.Wrap(services.ErrValidation, "media", "new_item", "remote name is empty", nil)
	}
	if kind == KindEpisode {
		if video.Season < 0 {
			return nil, services.Wrap(services.ErrValidation, "media", "new_item", fmt.Sprintf("invalid season %d", video.Season), nil)
		}
		if len(video.Episodes) == 0 {
			return nil, services.Wrap(services.ErrValidation, "media", "new_item", "episode number missing", nil)
		}
		for _, ep := range video.Episodes {
			if ep < 0 {
				return nil, services.Wrap(services.ErrValidation, "media", "new_item", fmt.Sprintf("invalid episode %d", ep), nil)
			}
		}
	}

	item := &Item{
		Kind:       kind,
		RemoteID:   file.ID,
		RemoteName: file.Name,
		Extension:  extension(file.Name),
		Title:      strings.TrimSpace(video.Title),
		Year:       strings.TrimSpace(video.Year),
		Language:   video.Language,
		Encrypted:  file.Encrypted,
		Metadata:   metadata.Clone(),
		Prefix:     append([]string(nil), naming.Prefix...),
		Suffix:     append([]string(nil), naming.Suffix...),
	}
	if kind == KindEpisode {
		item.Season = video.Season
		item.Episodes = append([]int(nil), video.Episodes...)
	}
	return item, nil
}

// extension returns name's extension without the dot. Leading dots belong to
// the base name, so ".mkv" has none.
func extension(name string) string {
	return strings.TrimPrefix(path.Ext(strings.TrimLeft(name, ".")), ".")
}
