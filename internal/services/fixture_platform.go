package services

import (
	"context"
	"fmt"
	"os"

	"github.com/google/logger"
	"gopkg.in/yaml.v3"
)

// FixturePlatform is a Platform backed by a YAML file. It lets the backend
// run end to end without contacting the real platform. It is read-only after
// loading and safe for concurrent use.
type FixturePlatform struct {
	Accounts []FixtureAccount       `yaml:"accounts"`
	Posts    map[string]FixturePost `yaml:"posts"`
}

// FixtureAccount is one accepted session cookie.
type FixtureAccount struct {
	Cookie   string `yaml:"cookie"`
	Username string `yaml:"username"`
}

// FixturePost is a post addressed by its shortcode.
type FixturePost struct {
	Private     bool             `yaml:"private"`
	RateLimited bool             `yaml:"rate_limited"`
	Comments    []FixtureComment `yaml:"comments"`
}

// FixtureComment is one comment on a fixture post. Text is only there to
// keep fixture files readable.
type FixtureComment struct {
	Username string `yaml:"username"`
	Text     string `yaml:"text"`
}

// LoadFixturePlatform reads a fixture file from path.
func LoadFixturePlatform(path string) (*FixturePlatform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture file: %w", err)
	}
	return ParseFixturePlatform(data)
}

// ParseFixturePlatform decodes fixture YAML.
func ParseFixturePlatform(data []byte) (*FixturePlatform, error) {
	p := &FixturePlatform{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse fixture yaml: %w", err)
	}
	if p.Posts == nil {
		p.Posts = make(map[string]FixturePost)
	}
	logger.Infof("Loaded fixture platform: %d account(s), %d post(s)", len(p.Accounts), len(p.Posts))
	return p, nil
}

// Login resolves cookie to an account.
func (p *FixturePlatform) Login(_ context.Context, cookie string) (string, error) {
	for _, a := range p.Accounts {
		if a.Cookie == cookie {
			return a.Username, nil
		}
	}
	return "", ErrLoginFailed
}

// Comments lists the comments of the post with the given shortcode.
func (p *FixturePlatform) Comments(_ context.Context, _ string, shortcode string) ([]Comment, error) {
	post, ok := p.Posts[shortcode]
	switch {
	case !ok:
		return nil, fmt.Errorf("%w: shortcode %q may have been deleted or the URL is incorrect", ErrPostNotFound, shortcode)
	case post.Private:
		return nil, fmt.Errorf("%w: shortcode %q belongs to a private account", ErrPrivatePost, shortcode)
	case post.RateLimited:
		return nil, ErrRateLimited
	}

	out := make([]Comment, 0, len(post.Comments))
	for _, c := range post.Comments {
		out = append(out, Comment{Username: c.Username})
	}
	return out, nil
}
