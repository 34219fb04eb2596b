package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"auroraview/internal/aerrors"
	"auroraview/internal/netfetch"
)

// currentVersion is the running binary's own version, compared against
// the update feed's latest release to decide whether an update is
// available (spec §6 `self-update [VERSION] [--check-only] [--token T]`).
const currentVersion = "0.0.0-dev"

const updateFeedURL = "https://releases.auroraview.dev/latest.json"

type releaseInfo struct {
	Version     string `json:"version"`
	DownloadURL string `json:"download_url"`
}

func newSelfUpdateCommand() *cobra.Command {
	var (
		checkOnly bool
		token     string
	)

	cmd := &cobra.Command{
		Use:   "self-update [VERSION]",
		Short: "Check for and install a newer AuroraView release",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv("AURORAVIEW_TOKEN")
			}

			want := ""
			if len(args) == 1 {
				want = args[0]
			}

			release, err := resolveRelease(cmd.Context(), want, token)
			if err != nil {
				return err
			}

			if release.Version == currentVersion {
				fmt.Println(green(fmt.Sprintf("already up to date (%s)", currentVersion)))
				return nil
			}

			fmt.Println(cyan(fmt.Sprintf("update available: %s -> %s", currentVersion, release.Version)))
			if checkOnly {
				return nil
			}

			if err := installRelease(cmd.Context(), release); err != nil {
				fmt.Println(red("self-update failed: " + err.Error()))
				return err
			}
			fmt.Println(green(fmt.Sprintf("updated to %s; restart to apply", release.Version)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check-only", false, "report the latest version without installing it")
	cmd.Flags().StringVar(&token, "token", "", "license token, falls back to AURORAVIEW_TOKEN")

	return cmd
}

// resolveRelease fetches the update feed (optionally pinned to
// wantVersion) and authenticates the request with token, converting an
// unauthorized response into aerrors.LicenseFailure (spec §7).
func resolveRelease(ctx context.Context, wantVersion, token string) (releaseInfo, error) {
	if token == "" {
		return releaseInfo{}, aerrors.New(aerrors.LicenseFailure, "selfupdate.resolve", "missing license token: pass --token or set AURORAVIEW_TOKEN")
	}

	url := updateFeedURL
	if wantVersion != "" {
		url = fmt.Sprintf("https://releases.auroraview.dev/%s.json", wantVersion)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return releaseInfo{}, aerrors.Wrap(aerrors.InvalidArgument, "selfupdate.resolve", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return releaseInfo{}, aerrors.Wrap(aerrors.NetworkFailure, "selfupdate.resolve", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return releaseInfo{}, aerrors.New(aerrors.LicenseFailure, "selfupdate.resolve", "license token was rejected by the update server")
	case http.StatusNotFound:
		return releaseInfo{}, aerrors.New(aerrors.NotFound, "selfupdate.resolve", "no release matches "+wantVersion)
	}
	if resp.StatusCode != http.StatusOK {
		return releaseInfo{}, aerrors.New(aerrors.NetworkFailure, "selfupdate.resolve", fmt.Sprintf("update feed returned status %d", resp.StatusCode))
	}

	var release releaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return releaseInfo{}, aerrors.Wrap(aerrors.InvalidArgument, "selfupdate.resolve", err)
	}
	return release, nil
}

// installRelease downloads the platform-matching artifact and swaps it
// in for the running executable (rename-over-self, since the current
// process keeps its already-open inode on both Unix and Windows).
func installRelease(ctx context.Context, release releaseInfo) error {
	self, err := os.Executable()
	if err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "selfupdate.install", err)
	}

	dest := filepath.Join(filepath.Dir(self), fmt.Sprintf(".auroraview-%s-%s", release.Version, runtime.GOOS))
	fetcher := netfetch.New("self-update")
	if err := fetcher.Download(ctx, release.DownloadURL, dest); err != nil {
		return err
	}
	if err := os.Chmod(dest, 0o755); err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "selfupdate.install", err)
	}
	if err := os.Rename(dest, self); err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "selfupdate.install", err)
	}
	return nil
}
