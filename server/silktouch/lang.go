package silktouch

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudfoundry-attic/jibber_jabber"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sandertv/gophertunnel/minecraft/text"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locale/*.yaml
var locales embed.FS

// defaultLanguage is the language used for messages missing in the configured language.
var defaultLanguage = language.MustParse("en-US")

// fields holds the values substituted in a message, such as Type and HealthPercentage.
type fields = map[string]any

// Lang translates message IDs into coloured text in a single language.
type Lang struct {
	tag       language.Tag
	localizer *i18n.Localizer
}

// NewLang loads the embedded locales, followed by the locale files found in dir, which override messages of
// the embedded files. Embedded locales missing in dir are written to it first. If dir is empty, only the
// embedded locales are used. name is a language tag such as pt-BR, or auto to use the language of the
// host. Errors reading files in dir are returned, but never prevent a usable Lang from being returned.
func NewLang(name, dir string) (*Lang, error) {
	bundle := i18n.NewBundle(defaultLanguage)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	var errs []error
	embedded, _ := fs.Glob(locales, "locale/*.yaml")
	for _, path := range embedded {
		data, _ := locales.ReadFile(path)
		if _, err := bundle.ParseMessageFileBytes(data, filepath.Base(path)); err != nil {
			errs = append(errs, fmt.Errorf("parse embedded locale %v: %w", path, err))
		}
	}
	if dir != "" {
		if err := writeMissingLocales(dir, embedded); err != nil {
			errs = append(errs, err)
		}
		files, _ := filepath.Glob(filepath.Join(dir, "*.yaml"))
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				errs = append(errs, fmt.Errorf("read locale: %w", err))
				continue
			}
			if _, err := bundle.ParseMessageFileBytes(data, filepath.Base(path)); err != nil {
				errs = append(errs, fmt.Errorf("parse locale %v: %w", path, err))
			}
		}
	}

	tags := bundle.LanguageTags()
	_, index, _ := language.NewMatcher(tags).Match(resolveLanguage(name))
	tag := tags[index]
	return &Lang{
		tag:       tag,
		localizer: i18n.NewLocalizer(bundle, tag.String(), defaultLanguage.String()),
	}, errors.Join(errs...)
}

func writeMissingLocales(dir string, embedded []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create locale directory: %w", err)
	}
	for _, path := range embedded {
		target := filepath.Join(dir, filepath.Base(path))
		if _, err := os.Stat(target); err == nil {
			continue
		}
		data, _ := locales.ReadFile(path)
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("write locale: %w", err)
		}
	}
	return nil
}

// resolveLanguage parses the configured language name. Underscores are accepted as separator, so that EN_US
// is read as en-US. auto detects the language of the host, falling back to the default language.
func resolveLanguage(name string) language.Tag {
	name = strings.ReplaceAll(strings.TrimSpace(name), "_", "-")
	if strings.EqualFold(name, "auto") {
		detected, err := jibber_jabber.DetectIETF()
		if err != nil {
			return defaultLanguage
		}
		name = detected
	}
	tag, err := language.Parse(name)
	if err != nil {
		return defaultLanguage
	}
	return tag
}

// Tag returns the language messages are translated into.
func (l *Lang) Tag() language.Tag {
	return l.tag
}

// Lines translates the message with the ID passed and returns its coloured lines. An empty message returns
// no lines. A message that does not exist in any locale is returned as its ID.
func (l *Lang) Lines(id string, f fields) []string {
	raw, err := l.localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: f})
	if err != nil && raw == "" {
		raw = id
	}
	raw = strings.TrimRight(raw, "\n")
	if raw == "" {
		return nil
	}
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = text.Colourf("%s", line)
	}
	return lines
}

// Text translates the message with the ID passed into a single, possibly multi-line, string.
func (l *Lang) Text(id string, f fields) string {
	return strings.Join(l.Lines(id, f), "\n")
}

// Prefixed translates the message with the ID passed and puts the plugin prefix in front of it.
func (l *Lang) Prefixed(id string, f fields) string {
	return l.Text("general.prefix", nil) + l.Text(id, f)
}
