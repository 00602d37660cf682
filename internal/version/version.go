// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package version // import "streamlance.app/internal/version"

import "strings"

const (
	devVersion = "Development Version"
	repoURL    = "https://github.com/streamlance/streamlance"
)

// Variables populated at build time when using LD_FLAGS.
var (
	Commit    = "Unknown (built outside VCS)"
	BuildDate = "Unknown (built outside VCS)"
	Version   = devVersion
)

type Info struct{}

func New() Info { return Info{} }

func (Info) Commit() string { return Commit }

func (self Info) CommitURL() string {
	if strings.HasPrefix(self.Commit(), "Unknown ") {
		return ""
	}
	return repoURL + "/commit/" + self.Commit()
}

func (Info) BuildDate() string { return BuildDate }

func (Info) Version() string { return Version }

// UserAgent returns the default User-Agent for outgoing feed requests.
func (self Info) UserAgent() string {
	return "StreamLance/" + self.Version() + " (+" + repoURL + ")"
}
