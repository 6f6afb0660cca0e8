package manager

import (
	"github.com/Masterminds/semver/v3"

	"github.com/smileynet/tcon/internal/console"
)

// LatestStable returns the newest stable catalog entry. Prerelease
// versions never count as stable.
func LatestStable(entries []Entry) (Entry, bool) {
	var (
		best    Entry
		bestVer *semver.Version
	)
	for _, e := range entries {
		if console.Channel(e.Channel) != console.ChannelStable {
			continue
		}
		v, err := semver.NewVersion(e.Version)
		if err != nil || v.Prerelease() != "" {
			continue
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			best, bestVer = e, v
		}
	}
	return best, bestVer != nil
}

// UpdateCandidate returns the newest entry on the installed toolchain's
// channel and major version that is newer than it.
func UpdateCandidate(entries []Entry, current Installed) (Entry, bool) {
	cur, err := semver.NewVersion(current.Version)
	if err != nil {
		return Entry{}, false
	}

	var (
		best    Entry
		bestVer *semver.Version
	)
	for _, e := range entries {
		if e.Channel != current.Channel || e.ID == current.ID {
			continue
		}
		v, err := semver.NewVersion(e.Version)
		if err != nil || v.Major() != cur.Major() || !v.GreaterThan(cur) {
			continue
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			best, bestVer = e, v
		}
	}
	return best, bestVer != nil
}
