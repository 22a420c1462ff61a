// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package android

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/janderssonse/applist/internal/domain"
)

// dumpsysTimeLayout is how dumpsys prints install and usage timestamps.
const dumpsysTimeLayout = "2006-01-02 15:04:05"

var (
	packageHeader = regexp.MustCompile(`^\s*Package \[([^\]]+)\]`)
	sdkPair       = regexp.MustCompile(`\b(minSdk|targetSdk)=(\d+)`)
	enabledState  = regexp.MustCompile(`\benabled=(\d+)`)
	archiveState  = regexp.MustCompile(`\barchiveState=(\S+)`)
	componentLine = regexp.MustCompile(`^\s*([A-Za-z][\w.]*)/[\w.$]+\s*$`)
	usageLine     = regexp.MustCompile(`\bpackage=(\S+).*?\blastTimeUsed="([^"]+)"`)
	grantedPerm   = regexp.MustCompile(`^\s*([\w.]+): granted=(true|false)`)
	requestedPerm = regexp.MustCompile(`^([A-Za-z_][\w.]*)(?::.*)?$`)
)

// Component enabled states as printed by dumpsys.
const (
	enabledStateDefault = 0
	enabledStateEnabled = 1
)

// packageBlock is the raw text of one "Package [...]" section.
type packageBlock struct {
	name  string
	lines []string
}

func splitPackageBlocks(out string) []packageBlock {
	var (
		blocks  []packageBlock
		current *packageBlock
	)

	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if m := packageHeader.FindStringSubmatch(line); m != nil {
			blocks = append(blocks, packageBlock{name: m[1]})
			current = &blocks[len(blocks)-1]

			continue
		}

		if current != nil {
			current.lines = append(current.lines, line)
		}
	}

	return blocks
}

// parsePackageRecords parses `dumpsys package packages`. nativeArchive tells
// whether the platform reports an archived state at all.
func parsePackageRecords(out string, nativeArchive bool) []domain.PackageRecord {
	blocks := splitPackageBlocks(out)
	records := make([]domain.PackageRecord, 0, len(blocks))

	for _, block := range blocks {
		records = append(records, parsePackageBlock(block, nativeArchive))
	}

	return records
}

func parsePackageBlock(block packageBlock, nativeArchive bool) domain.PackageRecord {
	rec := domain.PackageRecord{
		PackageName: block.name,
		Enabled:     true,
	}

	if nativeArchive {
		rec.ArchivedFlag = domain.Ptr(false)
	}

	section := ""
	userSeen := false

	for _, raw := range block.lines {
		line := strings.TrimSpace(raw)

		switch {
		case strings.HasSuffix(line, ":") && !strings.Contains(line, "="):
			section = strings.TrimSuffix(line, ":")

			continue
		case strings.HasPrefix(line, "codePath="):
			rec.ApkPath = apkPath(strings.TrimPrefix(line, "codePath="))
		case strings.HasPrefix(line, "flags=["):
			rec.System = hasFlag(line, "SYSTEM")
		case strings.HasPrefix(line, "User 0:") && !userSeen:
			userSeen = true
			rec.Enabled = parseEnabled(line)

			if m := archiveState.FindStringSubmatch(line); m != nil && nativeArchive {
				rec.ArchivedFlag = domain.Ptr(m[1] != "null")
			}
		case section == "metaData" && strings.Contains(line, "="):
			key, value, _ := strings.Cut(line, "=")
			if rec.MetaData == nil {
				rec.MetaData = make(map[string]string)
			}

			rec.MetaData[key] = value
		}

		for _, m := range sdkPair.FindAllStringSubmatch(line, -1) {
			v, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}

			if m[1] == "minSdk" && rec.MinSdk == nil {
				rec.MinSdk = domain.Ptr(v)
			} else if m[1] == "targetSdk" && rec.TargetSdk == nil {
				rec.TargetSdk = domain.Ptr(v)
			}
		}
	}

	return rec
}

func apkPath(codePath string) string {
	codePath = strings.TrimSpace(codePath)
	if codePath == "" || strings.HasSuffix(codePath, ".apk") {
		return codePath
	}

	return strings.TrimSuffix(codePath, "/") + "/base.apk"
}

func hasFlag(line, flag string) bool {
	inner := strings.TrimSuffix(strings.TrimPrefix(line, "flags=["), "]")
	for _, f := range strings.Fields(inner) {
		if f == flag {
			return true
		}
	}

	return false
}

// parseEnabled maps the component enabled state of a user line; only the
// default and explicitly enabled states count as enabled.
func parseEnabled(line string) bool {
	m := enabledState.FindStringSubmatch(line)
	if m == nil {
		return true
	}

	state, err := strconv.Atoi(m[1])
	if err != nil {
		return true
	}

	return state == enabledStateDefault || state == enabledStateEnabled
}

// parsePackageDetails parses `dumpsys package <name>` for that package.
// ok is false when the output has no block for the package.
func parsePackageDetails(out, pkg string, loc *time.Location) (domain.PackageDetails, bool) {
	var details domain.PackageDetails

	for _, block := range splitPackageBlocks(out) {
		if block.name != pkg {
			continue
		}

		section := ""
		granted := make(map[string]struct{})

		for _, raw := range block.lines {
			line := strings.TrimSpace(raw)

			switch {
			case strings.HasSuffix(line, ":") && !strings.Contains(line, "="):
				section = strings.TrimSuffix(line, ":")
			case strings.HasPrefix(line, "versionName="):
				details.VersionName = strings.TrimPrefix(line, "versionName=")
			case strings.HasPrefix(line, "firstInstallTime="):
				details.FirstInstallTime = parseDumpsysTime(strings.TrimPrefix(line, "firstInstallTime="), loc)
			case strings.HasPrefix(line, "lastUpdateTime="):
				details.LastUpdateTime = parseDumpsysTime(strings.TrimPrefix(line, "lastUpdateTime="), loc)
			case section == "requested permissions" && line != "":
				// The list ends at the first line that is not a permission name,
				// e.g. "User 0: ..." when no install permissions were granted.
				if m := requestedPerm.FindStringSubmatch(line); m != nil {
					details.RequestedPermissions = append(details.RequestedPermissions, m[1])
				} else {
					section = ""
				}
			case section == "install permissions" || section == "runtime permissions":
				if m := grantedPerm.FindStringSubmatch(line); m != nil && m[2] == "true" {
					granted[m[1]] = struct{}{}
				}
			}
		}

		for _, perm := range details.RequestedPermissions {
			if _, ok := granted[perm]; ok {
				details.GrantedPermissions = append(details.GrantedPermissions, perm)
			}
		}

		return details, true
	}

	return details, false
}

// parseDumpsysTime returns epoch millis, or 0 when the value is not a time.
func parseDumpsysTime(value string, loc *time.Location) int64 {
	t, err := time.ParseInLocation(dumpsysTimeLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return 0
	}

	return t.UnixMilli()
}

// parseComponents collects package names from component lines such as
// "com.example/.MainActivity".
func parseComponents(out string, into map[string]struct{}) {
	for _, line := range strings.Split(out, "\n") {
		if m := componentLine.FindStringSubmatch(line); m != nil {
			into[m[1]] = struct{}{}
		}
	}
}

// parseInstaller reads `pm list packages -i` output for one package.
func parseInstaller(out, pkg string) string {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.TrimPrefix(fields[0], "package:") != pkg {
			continue
		}

		for _, f := range fields[1:] {
			if installer, ok := strings.CutPrefix(f, "installer="); ok && installer != "null" {
				return installer
			}
		}
	}

	return ""
}

// parseLastUsed reads `dumpsys usagestats` and keeps the latest use per
// package at or after since.
func parseLastUsed(out string, since time.Time, loc *time.Location) map[string]int64 {
	epochs := make(map[string]int64)
	cutoff := since.UnixMilli()

	for _, line := range strings.Split(out, "\n") {
		m := usageLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		epoch := parseDumpsysTime(m[2], loc)
		if epoch <= 0 || epoch < cutoff {
			continue
		}

		if epoch > epochs[m[1]] {
			epochs[m[1]] = epoch
		}
	}

	return epochs
}
