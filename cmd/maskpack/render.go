package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"maskpack/internal/ledger"
	"maskpack/internal/packager"
	"maskpack/internal/topology"
)

func renderTopology(topo topology.Topology) string {
	final := topo.FinalMask
	if topo.SyntheticFinalMask {
		final += " (fallback)"
	}
	return renderFields([][2]string{
		{"Launched from", topo.Launch.Label()},
		{"Mask name", topo.MaskName},
		{"Revision", topo.Revision},
		{"Dataprep", topo.Dataprep},
		{"Final mask", final},
	})
}

func printManifest(out io.Writer, m packager.Manifest, colorize bool) {
	for _, r := range m.Results() {
		label := archiveLabel(r.Target)
		if r.OK() {
			msg := fmt.Sprintf("%s (%d files, %s)", r.Path, r.Files, formatBytes(r.Bytes))
			fmt.Fprintln(out, renderStatusLine(label, statusOK, msg, colorize))
			continue
		}
		fmt.Fprintln(out, renderStatusLine(label, statusError, r.Message, colorize))
	}
}

func printLedger(out io.Writer, res ledger.FinalizeResult, colorize bool) {
	if res.Err != nil && res.Artifact == "" {
		fmt.Fprintln(out, renderStatusLine("Run ledger", statusWarn, fmt.Sprintf("not kept (%v)", res.Err), colorize))
		return
	}
	if res.Err != nil {
		fmt.Fprintln(out, renderStatusLine("Run ledger", statusWarn, fmt.Sprintf("%s (%v)", res.Artifact, res.Err), colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Run ledger", statusOK, res.Artifact, colorize))
}

func archiveLabel(target packager.Target) string {
	switch target {
	case packager.TargetReview:
		return "Review archive"
	case packager.TargetVendor:
		return "Vendor archive"
	default:
		return string(target)
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
