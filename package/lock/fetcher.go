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

package lock

import (
	"github.com/go-git/go-git/v5"
	"github.com/rs/zerolog/log"

	pkg "github.com/cloudyluna/nickel/package"
)

// Fetcher clones a git dependency's URL into destDir and reports the
// commit its HEAD resolved to. It is an interface so the resolver's
// recursive realisation logic can be exercised in tests without
// hitting the network (spec §4.6, "cloning the git repo... and
// recording its HEAD commit").
type Fetcher interface {
	Clone(url, destDir string) (pkg.ObjectId, error)
}

// GitFetcher is the real Fetcher, backed by go-git's own plain clone
// (grounded in kptdev-kpt's porch/repository/pkg/git usage of
// go-git/go-git/v5 for exactly this: cloning a repo and reading back
// its resolved HEAD commit).
type GitFetcher struct {
	// Recursive, if true, also initializes submodules -- the manifest
	// resolver doesn't currently need this, but it mirrors a plain
	// recursive clone option most git clients expose.
	Recursive bool
}

func (f GitFetcher) Clone(url, destDir string) (pkg.ObjectId, error) {
	opts := &git.CloneOptions{URL: url}
	if f.Recursive {
		opts.RecurseSubmodules = git.DefaultSubmoduleRecursionDepth
	}
	repo, err := git.PlainClone(destDir, false, opts)
	if err != nil {
		return pkg.ObjectId{}, err
	}
	head, err := repo.Head()
	if err != nil {
		return pkg.ObjectId{}, err
	}
	log.Debug().Str("url", url).Str("dest", destDir).Str("head", head.Hash().String()).Msg("cloned package dependency")
	return pkg.FromPlumbingHash(head.Hash()), nil
}
