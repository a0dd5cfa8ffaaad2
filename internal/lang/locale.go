package lang

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Param is the query parameter that forces a locale.
const Param = "lang"

var (
	PortugueseBR = language.MustParse("pt-BR")
	English      = language.English
)

// Supported lists the page locales, default first.
var Supported = []language.Tag{PortugueseBR, English}

var matcher = language.NewMatcher(Supported)

//go:embed locales/*.yaml
var localesFS embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

var (
	registerOnce sync.Once
	registerErr  error
)

// Register loads the embedded catalogs into x/text/message. It is safe to
// call more than once.
func Register() error {
	registerOnce.Do(func() {
		registerErr = registerFS(localesFS)
	})
	return registerErr
}

func registerFS(fsys fs.FS) error {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return fmt.Errorf("glob locales: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no locale catalogs found")
	}
	sort.Strings(paths)
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		tag, err := language.Parse(strings.TrimSpace(file.Locale))
		if err != nil {
			return fmt.Errorf("%s: locale %q: %w", path, file.Locale, err)
		}
		for key, msg := range file.Messages {
			if err := message.SetString(tag, key, msg); err != nil {
				return fmt.Errorf("%s: key %q: %w", path, key, err)
			}
		}
	}
	return nil
}

// FromRequest picks the page locale: the lang query parameter wins, then
// Accept-Language, then pt-BR.
func FromRequest(r *http.Request) language.Tag {
	if v := strings.TrimSpace(r.URL.Query().Get(Param)); v != "" {
		if tag, err := language.Parse(v); err == nil {
			return Match(tag)
		}
	}
	return FromAcceptLanguage(r.Header.Get("Accept-Language"))
}

func FromAcceptLanguage(header string) language.Tag {
	header = strings.TrimSpace(header)
	if header == "" {
		return PortugueseBR
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return PortugueseBR
	}
	return Match(tags...)
}

// Match maps arbitrary tags onto one of the Supported locales.
func Match(tags ...language.Tag) language.Tag {
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return PortugueseBR
	}
	return Supported[idx]
}

func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}
