// Copyright 2024 The Nickel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lock implements the lockfile resolver (spec §4.6): reading a
// manifest's declared dependencies, realising each one (cloning git
// sources into the content-addressed cache, or reflecting path sources
// unchanged), recursing into each realised source's own manifest, and
// flattening the resulting tree into a pkg.LockFile.
package lock

import (
	"fmt"
	"path/filepath"

	pkg "github.com/cloudyluna/nickel/package"
	"github.com/cloudyluna/nickel/term"
)

// Source is a dependency exactly as its manifest declared it: a place
// to fetch from, not yet realised to a specific revision or confirmed
// to exist. It mirrors the `Git{url} | Path{path}` variant from the
// manifest's own record shape, kept distinct from pkg.LockedPackageSource
// because a Source has no tree id and a relative (not yet absolute)
// path.
type Source struct {
	kind    sourceKind
	URL     string
	Path    string
	Default bool
}

type sourceKind int

const (
	sourceGit sourceKind = iota
	sourcePath
)

func GitRef(url string) Source   { return Source{kind: sourceGit, URL: url} }
func PathRef(path string) Source { return Source{kind: sourcePath, Path: path} }

// GitRefDefault is GitRef with Default set, mirroring modfile.Dep.Default:
// when a package is required under more than one major version, the one
// marked default is the one unqualified imports resolve to.
func GitRefDefault(url string) Source { return Source{kind: sourceGit, URL: url, Default: true} }

func (s Source) IsGit() bool  { return s.kind == sourceGit }
func (s Source) IsPath() bool { return s.kind == sourcePath }

// MatchesLocked reports whether s and locked name the same underlying
// dependency (ignoring any revision locked lists that s itself doesn't
// pin) -- used by the freshness check (spec §4.6).
func (s Source) MatchesLocked(locked pkg.LockedPackageSource) bool {
	switch {
	case s.IsGit() && locked.IsGit():
		return s.URL == locked.GitRepoURL
	case s.IsPath() && locked.IsPath():
		return s.Path == locked.PathAbs
	default:
		return false
	}
}

// Spec is one dependency entry in a manifest, not yet resolved to a
// specific package version.
type Spec struct {
	Name   pkg.Name
	Source Source
}

// IsDefault reports whether s should win when a dependency name is
// required under more than one source (e.g. two major versions of the
// same git repo) and an unqualified import must pick one.
func (s Source) IsDefault() bool { return s.Default }

// Manifest is a parsed `{dependencies = {...}}` record (spec §6). A
// nil ParentDir means path dependencies aren't allowed -- the manifest
// came from somewhere (e.g. a synthesized in-memory term) with no
// filesystem location of its own to resolve them against.
type Manifest struct {
	ParentDir    *string
	Dependencies map[pkg.Name]Source
}

// ManifestError reports a manifest record that doesn't have the shape
// external interfaces §6 requires.
type ManifestError struct {
	Reason string
}

func (e *ManifestError) Error() string { return fmt.Sprintf("invalid manifest: %s", e.Reason) }

// ParseManifest converts an already-evaluated manifest term (a record
// with a "dependencies" field, itself a record of `'Git {url=...}` /
// `'Path "..."` enum variants -- spec §6) into a Manifest. Enum
// variants with a payload are represented in the term tree as
// App(Enum(tag), payload), per the pattern compiler's own variant
// encoding (term/pattern).
func ParseManifest(rt *term.RichTerm, parentDir *string) (*Manifest, error) {
	root, ok := rt.Node.(*term.Record)
	if !ok {
		return nil, &ManifestError{Reason: "manifest did not evaluate to a record"}
	}
	depsField, ok := root.Data.Fields["dependencies"]
	if !ok || depsField.Value == nil {
		return nil, &ManifestError{Reason: `manifest record has no "dependencies" field`}
	}
	depsRecord, ok := depsField.Value.Node.(*term.Record)
	if !ok {
		return nil, &ManifestError{Reason: `"dependencies" field is not a record`}
	}

	m := &Manifest{ParentDir: parentDir, Dependencies: make(map[pkg.Name]Source)}
	for _, fieldName := range depsRecord.Data.FieldOrder {
		field := depsRecord.Data.Fields[fieldName]
		if field.Value == nil {
			return nil, &ManifestError{Reason: fmt.Sprintf("dependency %q has no value", fieldName)}
		}
		name, err := pkg.ParseName(fieldName)
		if err != nil {
			return nil, err
		}
		src, err := parseSource(fieldName, field.Value.Node)
		if err != nil {
			return nil, err
		}
		m.Dependencies[name] = src
	}
	return m, nil
}

func parseSource(depName string, n term.Node) (Source, error) {
	app, ok := n.(*term.App)
	if !ok {
		return Source{}, &ManifestError{Reason: fmt.Sprintf("dependency %q is not a tagged variant", depName)}
	}
	tag, ok := app.Fun.Node.(*term.Enum)
	if !ok {
		return Source{}, &ManifestError{Reason: fmt.Sprintf("dependency %q's tag is not an enum", depName)}
	}

	switch tag.Tag {
	case "Git":
		payload, ok := app.Arg.Node.(*term.Record)
		if !ok {
			return Source{}, &ManifestError{Reason: fmt.Sprintf("dependency %q: 'Git payload is not a record", depName)}
		}
		urlField, ok := payload.Data.Fields["url"]
		if !ok || urlField.Value == nil {
			return Source{}, &ManifestError{Reason: fmt.Sprintf("dependency %q: 'Git payload has no url field", depName)}
		}
		urlStr, ok := urlField.Value.Node.(*term.Str)
		if !ok {
			return Source{}, &ManifestError{Reason: fmt.Sprintf("dependency %q: 'Git url is not a string", depName)}
		}
		isDefault := false
		if defaultField, ok := payload.Data.Fields["default"]; ok && defaultField.Value != nil {
			defaultBool, ok := defaultField.Value.Node.(*term.Bool)
			if !ok {
				return Source{}, &ManifestError{Reason: fmt.Sprintf("dependency %q: 'Git default is not a bool", depName)}
			}
			isDefault = defaultBool.Value
		}
		return Source{kind: sourceGit, URL: urlStr.Value, Default: isDefault}, nil
	case "Path":
		pathStr, ok := app.Arg.Node.(*term.Str)
		if !ok {
			return Source{}, &ManifestError{Reason: fmt.Sprintf("dependency %q: 'Path payload is not a string", depName)}
		}
		return PathRef(pathStr.Value), nil
	default:
		return Source{}, &ManifestError{Reason: fmt.Sprintf("dependency %q: unknown source tag %q", depName, tag.Tag)}
	}
}

// DependencySpecs returns m's dependencies as a flat slice of Specs, in
// manifest declaration order is not guaranteed (map iteration) -- the
// resolver treats dependency order as immaterial, matching spec §4.6's
// description of realisation as a per-dependency, order-independent
// step.
func (m *Manifest) DependencySpecs() []Spec {
	specs := make([]Spec, 0, len(m.Dependencies))
	for name, src := range m.Dependencies {
		specs = append(specs, Spec{Name: name, Source: src})
	}
	return specs
}

// LockFilePath returns the path m's lock file would live at, or false
// if m has no ParentDir to anchor it to.
func (m *Manifest) LockFilePath() (string, bool) {
	if m.ParentDir == nil {
		return "", false
	}
	return filepath.Join(*m.ParentDir, "package.lock"), true
}

// IsLockFileUpToDate reports whether every dependency m declares is
// present in lf and still points at the same underlying source (spec
// §4.6, "Freshness check"). It does not check that a git dependency's
// tree is still current -- only that the lock file mentions the right
// repo/path at all.
func (m *Manifest) IsLockFileUpToDate(lf *pkg.LockFile) bool {
	for name, src := range m.Dependencies {
		locked, ok := lf.Dependencies[name]
		if !ok || !src.MatchesLocked(locked) {
			return false
		}
	}
	return true
}
