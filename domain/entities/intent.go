package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrIntentParse marks a completion response that could not be turned into an Intent
var ErrIntentParse = errors.New("intent parse failure")

// Intent is the structured form of a free-text shopping command
type Intent struct {
	Website string `json:"website"`
	Search  string `json:"search"`
}

// ParseIntent decodes a completion response into an Intent.
// Markdown code fences around the object are tolerated, anything else
// that is not a JSON object with both fields is an ErrIntentParse.
func ParseIntent(raw string) (Intent, error) {
	body := stripCodeFence(raw)

	var intent Intent
	if err := json.Unmarshal([]byte(body), &intent); err != nil {
		return Intent{}, fmt.Errorf("%w: invalid JSON: %v", ErrIntentParse, err)
	}
	if err := intent.Validate(); err != nil {
		return Intent{}, err
	}
	return intent, nil
}

// Validate checks that the website is an absolute http(s) URL and the search is non-empty
func (i Intent) Validate() error {
	if strings.TrimSpace(i.Search) == "" {
		return fmt.Errorf("%w: missing search", ErrIntentParse)
	}
	if i.Website == "" {
		return fmt.Errorf("%w: missing website", ErrIntentParse)
	}
	u, err := url.Parse(i.Website)
	if err != nil {
		return fmt.Errorf("%w: website %q: %v", ErrIntentParse, i.Website, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: website %q is not an absolute URL", ErrIntentParse, i.Website)
	}
	return nil
}

// stripCodeFence - extracts the body of a ```json fenced block if present
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	var body []string
	inBlock := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inBlock {
				break
			}
			inBlock = true
			continue
		}
		if inBlock {
			body = append(body, line)
		}
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}
