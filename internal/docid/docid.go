// Package docid derives stable, content-addressed document identifiers.
// An identifier is a pure function of (name, content): re-ingesting
// byte-identical content under the same name always yields the same ID, so
// index upserts overwrite instead of duplicating. Changing the content under
// the same name yields a different ID.
package docid

import (
	"crypto/sha256"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// idNamespace is the fixed UUIDv5 namespace used to map document IDs onto
// index point UUIDs. Generated once; never change it — doing so breaks the
// idempotent-upsert guarantee for existing collections.
var idNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// New returns the content-addressed identifier for a document given its
// filename (or URL) and normalized text content. The identifier is the
// sanitised base name joined with the first 8 hex characters of the content's
// SHA-256 digest, e.g. "dubai-brochure-3f5a1c9e".
func New(name, content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s-%x", sanitise(name), sum[:4])
}

// UUID maps a document identifier onto a deterministic UUID suitable for use
// as an index point ID. The mapping is injective in practice (UUIDv5 over the
// full identifier) and stable across processes.
func UUID(id string) string {
	return uuid.NewSHA1(idNamespace, []byte(id)).String()
}

// sanitise reduces a filename or URL to a compact, lowercase, hyphenated slug.
// Extensions and URL schemes are dropped; runs of non-alphanumeric characters
// collapse to single hyphens.
func sanitise(name string) string {
	s := strings.ToLower(name)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if ext := path.Ext(s); ext != "" && len(ext) <= 5 {
		s = strings.TrimSuffix(s, ext)
	}

	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		out = "document"
	}
	// Keep slugs bounded so IDs stay readable in logs and APIs.
	if len(out) > 64 {
		out = out[:64]
	}
	return strings.TrimSuffix(out, "-")
}
