// Package templater renders message templates against contact data.
//
// A template is an ordered list of one to three text fragments holding {{field}}
// placeholders. Substitution is literal and single pass: a value that itself
// contains a placeholder is never expanded again.
package templater

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
)

const (
	MaxFragments = 3
	// MaxTemplateLength is the limit, in characters, of the delimiter-joined fragments.
	MaxTemplateLength = 1000

	delimiter = "$@#__DELIMITER__#@%"
)

// Fields is the data a template is rendered against.
type Fields struct {
	Name  string
	Phone string
	Extra map[string]string
}

func FieldsOf(c *domain.Contact) Fields {
	return Fields{Name: c.Name, Phone: c.Phone, Extra: c.Fields()}
}

// Render substitutes placeholders in every fragment and trims the results.
// Unknown placeholders are kept verbatim.
func Render(fragments []string, f Fields) ([]string, error) {
	if err := Validate(fragments); err != nil {
		return nil, err
	}

	replacer := strings.NewReplacer(pairs(f)...)

	out := make([]string, len(fragments))
	for i, frag := range fragments {
		out[i] = strings.TrimSpace(replacer.Replace(frag))
	}
	return out, nil
}

// Validate checks the fragment count and the joined length of a template.
func Validate(fragments []string) error {
	if len(fragments) == 0 || len(fragments) > MaxFragments {
		return domain.InvalidInputf("template must have 1 to %d fragments, got %d", MaxFragments, len(fragments))
	}
	if n := utf8.RuneCountInString(strings.Join(fragments, delimiter)); n > MaxTemplateLength {
		return fmt.Errorf("%w: %d characters, limit is %d", domain.ErrTemplateTooLarge, n, MaxTemplateLength)
	}
	return nil
}

// Placeholders lists the tokens available for a campaign's templates.
func Placeholders(c *domain.Campaign) []string {
	out := []string{token("name"), token("phone")}
	for _, k := range c.ExtraFieldKeys {
		out = append(out, token(k))
	}
	return out
}

func pairs(f Fields) []string {
	values := map[string]string{
		token("name"):  f.Name,
		token("phone"): f.Phone,
	}
	// extra fields are added last so they win over the built-in ones
	extra := make([]string, 0, len(f.Extra))
	for k := range f.Extra {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		values[token(strings.ToLower(k))] = f.Extra[k]
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		out = append(out, k, values[k])
	}
	return out
}

func token(key string) string {
	return "{{" + key + "}}"
}
