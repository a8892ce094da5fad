// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package report

import (
	"embed"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

var json = jsoniter.ConfigFastest

//go:embed locales/*.json
var locales embed.FS

// SupportedLanguages lists the languages with an embedded message file. The first one is the
// fallback.
var SupportedLanguages = []language.Tag{
	language.English,
	language.Spanish,
	language.Czech,
}

// Manager holds the message bundle of all supported languages.
type Manager interface {
	GetBundle() *i18n.Bundle
	GetMatcher() language.Matcher
	GetTags() []language.Tag

	// Match returns the best supported language for lang.
	Match(lang string) language.Tag
}

type manager struct {
	bundle  *i18n.Bundle
	matcher language.Matcher
	tags    []language.Tag
}

// NewManager loads the embedded message files.
func NewManager() (Manager, error) {
	m := &manager{
		bundle: i18n.NewBundle(SupportedLanguages[0]),
		tags:   SupportedLanguages,
	}

	m.bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, tag := range m.tags {
		if _, err := m.bundle.LoadMessageFileFS(locales, "locales/"+tag.String()+".json"); err != nil {
			return nil, fmt.Errorf("failed to load language bundle for %s: %w", tag, err)
		}
	}

	m.matcher = language.NewMatcher(m.tags)

	return m, nil
}

func (m *manager) GetBundle() *i18n.Bundle {
	return m.bundle
}

func (m *manager) GetMatcher() language.Matcher {
	return m.matcher
}

func (m *manager) GetTags() []language.Tag {
	return m.tags
}

func (m *manager) Match(lang string) language.Tag {
	_, index, _ := m.matcher.Match(language.Make(lang))

	return m.tags[index]
}
