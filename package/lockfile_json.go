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

package pkg

import (
	"encoding/json"
	"sort"
)

// jsonLockedSource is LockedPackageSource's on-disk shape (spec §6):
// a tagged object under "Git" or "Path", since JSON object keys can't
// be a struct the way LockFile.Packages uses LockedPackageSource as a
// map key in memory.
type jsonLockedSource struct {
	Git  *jsonGitSource `json:"Git,omitempty"`
	Path *string        `json:"Path,omitempty"`
}

type jsonGitSource struct {
	Repo string `json:"repo"`
	Tree string `json:"tree"`
	Path string `json:"path"`
}

func (s LockedPackageSource) toJSON() jsonLockedSource {
	if s.IsGit() {
		return jsonLockedSource{Git: &jsonGitSource{Repo: s.GitRepoURL, Tree: s.GitTree.String(), Path: s.GitPath}}
	}
	p := s.PathAbs
	return jsonLockedSource{Path: &p}
}

func (j jsonLockedSource) toSource() (LockedPackageSource, error) {
	switch {
	case j.Git != nil:
		tree, err := ParseObjectId(j.Git.Tree)
		if err != nil {
			return LockedPackageSource{}, err
		}
		return GitSource(j.Git.Repo, tree, j.Git.Path), nil
	case j.Path != nil:
		return PathSourceOf(*j.Path), nil
	default:
		return LockedPackageSource{}, &ObjectIdParseError{Input: "", Alphabet: true}
	}
}

// jsonPackageEntry is one "packages" list entry: the source it's keyed
// by in memory, flattened alongside its name and dependencies into a
// single object so the on-disk shape stays a plain JSON array.
type jsonPackageEntry struct {
	Source       jsonLockedSource            `json:"source"`
	Name         string                      `json:"name"`
	Dependencies map[string]jsonLockedSource `json:"dependencies"`
}

type jsonLockFile struct {
	Dependencies map[string]jsonLockedSource `json:"dependencies"`
	Packages     []jsonPackageEntry          `json:"packages"`
}

// MarshalJSON renders lf in the on-disk shape of spec §6, with both
// the "dependencies" map and the "packages" list emitted in a fixed
// (lexical) order so that regenerating an unchanged lock file twice in
// a row produces byte-identical output (spec §4.6, "Freshness check").
func (lf LockFile) MarshalJSON() ([]byte, error) {
	out := jsonLockFile{
		Dependencies: make(map[string]jsonLockedSource, len(lf.Dependencies)),
		Packages:     make([]jsonPackageEntry, 0, len(lf.Packages)),
	}
	for name, src := range lf.Dependencies {
		out.Dependencies[name.String()] = src.toJSON()
	}
	for src, entry := range lf.Packages {
		deps := make(map[string]jsonLockedSource, len(entry.Dependencies))
		for name, depSrc := range entry.Dependencies {
			deps[name.String()] = depSrc.toJSON()
		}
		out.Packages = append(out.Packages, jsonPackageEntry{
			Source:       src.toJSON(),
			Name:         entry.Name.String(),
			Dependencies: deps,
		})
	}
	sort.Slice(out.Packages, func(i, j int) bool {
		return packageSortKey(out.Packages[i]) < packageSortKey(out.Packages[j])
	})
	return json.MarshalIndent(out, "", "  ")
}

func packageSortKey(e jsonPackageEntry) string {
	if e.Source.Git != nil {
		return "git:" + e.Source.Git.Repo + "/" + e.Source.Git.Path + "@" + e.Source.Git.Tree
	}
	if e.Source.Path != nil {
		return "path:" + *e.Source.Path
	}
	return ""
}

// UnmarshalJSON is MarshalJSON's inverse.
func (lf *LockFile) UnmarshalJSON(data []byte) error {
	var in jsonLockFile
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := NewLockFile()
	for nameStr, src := range in.Dependencies {
		name, err := ParseName(nameStr)
		if err != nil {
			return err
		}
		source, err := src.toSource()
		if err != nil {
			return err
		}
		out.Dependencies[name] = source
	}
	for _, entry := range in.Packages {
		source, err := entry.Source.toSource()
		if err != nil {
			return err
		}
		name, err := ParseName(entry.Name)
		if err != nil {
			return err
		}
		deps := make(map[Name]LockedPackageSource, len(entry.Dependencies))
		for depNameStr, depSrc := range entry.Dependencies {
			depName, err := ParseName(depNameStr)
			if err != nil {
				return err
			}
			depSource, err := depSrc.toSource()
			if err != nil {
				return err
			}
			deps[depName] = depSource
		}
		out.Packages[source] = LockFileEntry{Name: name, Dependencies: deps}
	}
	*lf = *out
	return nil
}
