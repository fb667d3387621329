// Package yamlspec reads component declarations from a YAML document. It is the frontend used by
// tests and by builds without Go sources to scan.
//
//	types:
//	  - package: example.com/app
//	    name: Repo
//	    params: [{name: T}]
//	    interface: true
//	declarations:
//	  - id: users
//	    kind: module
//	    module: example.com/app
//	    method: NewUserRepo
//	    type: app.Repo[app.User]
//	    claims:
//	      - type: app.Clock
//	roots: [users]
package yamlspec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	KindModule    = "module"
	KindAnnotated = "annotated"
)

type (
	Document struct {
		Types        []TypeSpec        `yaml:"types"`
		Declarations []DeclarationSpec `yaml:"declarations"`
		Templates    []DeclarationSpec `yaml:"templates"`
		Roots        []string          `yaml:"roots"`
	}

	TypeSpec struct {
		Package    string      `yaml:"package"`
		Name       string      `yaml:"name"`
		Params     []ParamSpec `yaml:"params"`
		Supertypes []string    `yaml:"supertypes"`
		Interface  bool        `yaml:"interface"`
		Final      bool        `yaml:"final"`
		Pointer    bool        `yaml:"pointer"`
		// Constructible elements get implicit declarations filling the Constructor fields.
		Constructible bool         `yaml:"constructible"`
		Constructor   []FieldSpec  `yaml:"constructor"`
		Methods       []MethodSpec `yaml:"methods"`
	}

	ParamSpec struct {
		Name   string   `yaml:"name"`
		Bounds []string `yaml:"bounds"`
	}

	FieldSpec struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	}

	MethodSpec struct {
		Name     string   `yaml:"name"`
		Params   []string `yaml:"params"`
		Results  []string `yaml:"results"`
		Variadic bool     `yaml:"variadic"`
	}

	DeclarationSpec struct {
		ID   string `yaml:"id"`
		Kind string `yaml:"kind"`

		// Module is the import path of the package declaring Method.
		Module string `yaml:"module"`
		Method string `yaml:"method"`
		// Package and Constructor locate an annotated type constructor.
		Package     string `yaml:"package"`
		Constructor string `yaml:"constructor"`

		TypeParams   []ParamSpec `yaml:"typeParams"`
		Type         string      `yaml:"type"`
		Tags         []string    `yaml:"tags"`
		Claims       []ClaimSpec `yaml:"claims"`
		Intercepts   string      `yaml:"intercepts"`
		Default      bool        `yaml:"default"`
		ReturnsError bool        `yaml:"returnsError"`
	}

	ClaimSpec struct {
		Type string   `yaml:"type"`
		Tags []string `yaml:"tags"`
		// Kind defaults to one-required.
		Kind string `yaml:"kind"`
	}
)

// Load decodes a document, unknown fields are rejected.
func Load(r io.Reader) (*Document, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("failed to decode declarations document:\n\t%w", err)
	}
	return &doc, nil
}

func LoadFile(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declarations document %s:\n\t%w", path, err)
	}
	doc, err := Load(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("invalid declarations document %s:\n\t%w", path, err)
	}
	return doc, nil
}
