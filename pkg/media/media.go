// Package media turns the different ways a user can point at a Spotify
// entity (URI, share link or bare id) into a canonical kind/id pair.
package media

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Kind is the type of a playable Spotify entity.
type Kind string

const (
	KindTrack    Kind = "track"
	KindAlbum    Kind = "album"
	KindPlaylist Kind = "playlist"
	KindArtist   Kind = "artist"
)

// IDLength is the length of a Spotify base-62 id.
const IDLength = 22

const (
	uriScheme = "spotify"
	shareHost = "open.spotify.com"
)

var (
	ErrInvalidMediaReference = errors.New("invalid media reference")
	ErrAmbiguousMediaKind    = errors.New("ambiguous media kind")
)

// Ref is a normalized media reference.
type Ref struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// URI renders the reference as a spotify:<kind>:<id> URI.
func (r Ref) URI() string {
	return uriScheme + ":" + string(r.Kind) + ":" + r.ID
}

func (r Ref) String() string {
	return r.URI()
}

// IsContainer reports whether the entity is played through a context
// (album, playlist, artist) rather than as a single item.
func (r Ref) IsContainer() bool {
	return r.Kind != KindTrack
}

// ParseKind parses a kind name. An empty string yields an empty Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case "", KindTrack, KindAlbum, KindPlaylist, KindArtist:
		return k, nil
	}
	return "", fmt.Errorf("%w: unsupported kind %q (use track, album, playlist or artist)", ErrInvalidMediaReference, s)
}

// Normalize converts raw into a Ref. explicit is the caller's kind hint and
// may be empty. Kinds embedded in URIs or links take precedence over the
// hint; when strict is set a disagreeing hint is an error instead.
func Normalize(raw string, explicit Kind, strict bool) (Ref, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Ref{}, fmt.Errorf("%w: empty reference", ErrInvalidMediaReference)
	}
	if _, err := ParseKind(string(explicit)); err != nil {
		return Ref{}, err
	}

	var (
		ref      Ref
		embedded bool
		err      error
	)
	switch {
	case strings.HasPrefix(strings.ToLower(text), uriScheme+":"):
		ref, err = parseURI(text)
		embedded = true
	case strings.Contains(strings.ToLower(text), shareHost+"/"):
		ref, err = parseLink(text)
		embedded = true
	default:
		ref = Ref{Kind: explicit, ID: text}
		if ref.Kind == "" {
			ref.Kind = KindTrack
		}
	}
	if err != nil {
		return Ref{}, err
	}
	if embedded && strict && explicit != "" && explicit != ref.Kind {
		return Ref{}, fmt.Errorf("%w: reference is a %s but %s was requested", ErrAmbiguousMediaKind, ref.Kind, explicit)
	}
	if !validID(ref.ID) {
		return Ref{}, fmt.Errorf("%w: %q is not a %d-character Spotify id", ErrInvalidMediaReference, ref.ID, IDLength)
	}
	return ref, nil
}

// parseURI handles spotify:<kind>:<id>.
func parseURI(text string) (Ref, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return Ref{}, fmt.Errorf("%w: expected spotify:<kind>:<id>, got %q", ErrInvalidMediaReference, text)
	}
	kind, err := embeddedKind(parts[1])
	if err != nil {
		return Ref{}, err
	}
	return Ref{Kind: kind, ID: parts[2]}, nil
}

// parseLink handles https://open.spotify.com/[intl-xx/]<kind>/<id>?si=...
func parseLink(text string) (Ref, error) {
	if !strings.Contains(text, "://") {
		text = "https://" + text
	}
	u, err := url.Parse(text)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %v", ErrInvalidMediaReference, err)
	}
	segs := make([]string, 0, 3)
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) > 0 && strings.HasPrefix(segs[0], "intl-") {
		segs = segs[1:]
	}
	if len(segs) < 2 {
		return Ref{}, fmt.Errorf("%w: link %q has no kind/id path", ErrInvalidMediaReference, text)
	}
	kind, err := embeddedKind(segs[0])
	if err != nil {
		return Ref{}, err
	}
	return Ref{Kind: kind, ID: segs[1]}, nil
}

func embeddedKind(s string) (Kind, error) {
	k, err := ParseKind(s)
	if err != nil {
		return "", err
	}
	if k == "" {
		return "", fmt.Errorf("%w: missing kind", ErrInvalidMediaReference)
	}
	return k, nil
}

// validID is an advisory shape check; the remote service has the final say.
func validID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}
