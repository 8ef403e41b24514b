package pics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/conradchan/igrestore/internal/pacing"
	"github.com/conradchan/igrestore/internal/profiles"
)

const (
	minimumPictureBytes      = 100
	defaultDownloadTimeout   = 15 * time.Second
	downloaderUserAgentValue = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
	downloadUserAgentHeader  = "User-Agent"

	createDirectoryErrFormat = "create picture directory %s: %w"
	writePictureErrFormat    = "write picture for %s: %w"

	logMessagePictureDownloaded = "picture downloaded"
	logMessagePictureSkipped    = "picture skipped"
	logMessagePictureFailed     = "picture download failed"
	logFieldPictureUsername     = "username"
	logFieldPictureReason       = "reason"
	logFieldPictureBytes        = "bytes"
	logFieldPictureError        = "error"

	skipReasonAlreadyPresent = "already present"
	skipReasonNoPictureURL   = "no picture url"
	failReasonTooSmall       = "response body too small"
	failReasonHTTPStatus     = "unexpected http status"
)

// DownloadReport tallies one downloader run.
type DownloadReport struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// DownloaderConfig configures a Downloader.
type DownloaderConfig struct {
	Store  *Store
	Client *http.Client
	Logger *zap.Logger

	// Pacing samples the delay between consecutive downloads. Pictures come
	// off a CDN, so the delays are much shorter than profile fetch pacing.
	Pacing pacing.Config

	// Wait is the suspension primitive; tests inject a no-op. Defaults to
	// pacing.WaitFor.
	Wait func(ctx context.Context, duration time.Duration) error
}

// Downloader fetches the profile pictures referenced by cached active
// profiles, one at a time.
type Downloader struct {
	store      *Store
	httpClient *http.Client
	logger     *zap.Logger
	pacer      *pacing.Pacer
	wait       func(ctx context.Context, duration time.Duration) error
}

// NewDownloader constructs a Downloader, applying defaults for unset knobs.
func NewDownloader(configuration DownloaderConfig) *Downloader {
	httpClient := configuration.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultDownloadTimeout}
	}
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pacingConfiguration := configuration.Pacing
	if pacingConfiguration.MinDelay == 0 && pacingConfiguration.MaxDelay == 0 {
		pacingConfiguration.MinDelay = pacing.DefaultPictureMinDelay
		pacingConfiguration.MaxDelay = pacing.DefaultPictureMaxDelay
	}
	wait := configuration.Wait
	if wait == nil {
		wait = pacing.WaitFor
	}
	return &Downloader{
		store:      configuration.Store,
		httpClient: httpClient,
		logger:     logger,
		pacer:      pacing.NewPacer(pacingConfiguration),
		wait:       wait,
	}
}

// Run downloads the picture for every active profile that references one and
// has no local asset yet. Individual failures are logged and tallied, never
// fatal; only filesystem problems and cancellation abort the run.
func (downloader *Downloader) Run(ctx context.Context, candidates []profiles.Profile) (DownloadReport, error) {
	report := DownloadReport{}

	if mkdirErr := os.MkdirAll(downloader.store.Directory(), 0o755); mkdirErr != nil {
		return report, fmt.Errorf(createDirectoryErrFormat, downloader.store.Directory(), mkdirErr)
	}

	for index, candidate := range candidates {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		if candidate.Status != profiles.StatusActive {
			report.Skipped++
			continue
		}
		if candidate.ProfilePicURL == "" {
			report.Skipped++
			downloader.logger.Debug(logMessagePictureSkipped,
				zap.String(logFieldPictureUsername, candidate.Username),
				zap.String(logFieldPictureReason, skipReasonNoPictureURL),
			)
			continue
		}
		if downloader.store.Has(candidate.Username) {
			report.Skipped++
			downloader.logger.Debug(logMessagePictureSkipped,
				zap.String(logFieldPictureUsername, candidate.Username),
				zap.String(logFieldPictureReason, skipReasonAlreadyPresent),
			)
			continue
		}

		if downloadErr := downloader.downloadOne(ctx, candidate); downloadErr != nil {
			report.Failed++
			downloader.logger.Warn(logMessagePictureFailed,
				zap.String(logFieldPictureUsername, candidate.Username),
				zap.String(logFieldPictureError, downloadErr.Error()),
			)
		} else {
			report.Downloaded++
		}

		if index == len(candidates)-1 {
			continue
		}
		if waitErr := downloader.wait(ctx, downloader.pacer.NextDelay()); waitErr != nil {
			return report, waitErr
		}
	}
	return report, nil
}

func (downloader *Downloader) downloadOne(ctx context.Context, candidate profiles.Profile) error {
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, candidate.ProfilePicURL, nil)
	if requestErr != nil {
		return requestErr
	}
	request.Header.Set(downloadUserAgentHeader, downloaderUserAgentValue)

	response, doErr := downloader.httpClient.Do(request)
	if doErr != nil {
		return doErr
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %d", failReasonHTTPStatus, response.StatusCode)
	}
	body, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return readErr
	}
	// Error pages and CDN placeholders come back tiny; a real picture never
	// fits in 100 bytes.
	if len(body) <= minimumPictureBytes {
		return fmt.Errorf("%s: %d bytes", failReasonTooSmall, len(body))
	}

	if writeErr := os.WriteFile(downloader.store.Path(candidate.Username), body, 0o644); writeErr != nil {
		return fmt.Errorf(writePictureErrFormat, candidate.Username, writeErr)
	}
	downloader.logger.Info(logMessagePictureDownloaded,
		zap.String(logFieldPictureUsername, candidate.Username),
		zap.Int(logFieldPictureBytes, len(body)),
	)
	return nil
}
