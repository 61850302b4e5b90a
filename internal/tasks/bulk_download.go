package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/desertthunder/ytpod/internal/formatter"
	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/shared"
	"golang.org/x/time/rate"
)

// BulkDownloadOpts contains configuration for bulk episode downloads.
type BulkDownloadOpts struct {
	OutputDir  string  // Base output directory (default: {podcastID}_episodes_{epoch})
	NumWorkers int     // Concurrent workers (default: 3, max: 10)
	RateLimit  float64 // Downloads started per second (default: 2)
}

// EpisodeDownloadResult is the outcome of downloading one episode.
type EpisodeDownloadResult struct {
	ItemID  string `json:"item_id"`
	Title   string `json:"title"`
	Path    string `json:"path,omitempty"`
	Size    int64  `json:"size"`
	Success bool   `json:"success"`
	Error   error  `json:"-"`
	Message string `json:"error,omitempty"`
}

// BulkDownloadResult summarizes a bulk download. It is also written as the manifest.
type BulkDownloadResult struct {
	PodcastID       string                  `json:"podcast_id"`
	TotalEpisodes   int                     `json:"total_episodes"`
	Downloaded      int                     `json:"downloaded"`
	Failed          int                     `json:"failed"`
	Skipped         int                     `json:"skipped"`
	OutputDirectory string                  `json:"output_directory"`
	ManifestPath    string                  `json:"-"`
	CompletedAt     time.Time               `json:"completed_at"`
	Results         []EpisodeDownloadResult `json:"results"`
}

type episodeDownloadJob struct {
	index int
	item  models.Item
	ref   models.FileRef
}

// BulkDownload downloads every finished episode of a podcast with a rate-limited worker pool and
// writes download_manifest.json into the output directory. Episodes without audio are skipped.
func (q *Queries) BulkDownload(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	podcastID string,
	opts BulkDownloadOpts,
) (*BulkDownloadResult, error) {
	if q.svc == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("%s_episodes_%d", podcastID, time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	items, err := q.Items(ctx, podcastID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch episodes: %w", err)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	queue := make([]episodeDownloadJob, 0, len(items))
	for i, item := range items {
		if item.Base().Status != models.ItemSuccess {
			continue
		}
		ref, _, ok := item.Audio()
		if !ok {
			continue
		}
		queue = append(queue, episodeDownloadJob{index: i + 1, item: item, ref: ref})
	}

	result := &BulkDownloadResult{
		PodcastID:       podcastID,
		TotalEpisodes:   len(items),
		Skipped:         len(items) - len(queue),
		OutputDirectory: opts.OutputDir,
		Results:         make([]EpisodeDownloadResult, 0, len(queue)),
	}
	sendProgress(prog, fetchEpisodesUpdate(podcastID, len(queue)))

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan episodeDownloadJob, len(queue))
	results := make(chan EpisodeDownloadResult, len(queue))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go q.downloadWorker(ctx, &wg, limiter, jobs, results, opts.OutputDir)
	}

	for _, job := range queue {
		jobs <- job
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)
		if res.Success {
			result.Downloaded++
			sendProgress(prog, downloadCompletedUpdate(completed, len(queue), res))
		} else {
			result.Failed++
			sendProgress(prog, downloadFailedUpdate(completed, len(queue), res))
		}
	}
	result.CompletedAt = time.Now().UTC()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "download_manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("download completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

// downloadWorker downloads episodes from the jobs channel until it is drained.
func (q *Queries) downloadWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan episodeDownloadJob,
	results chan<- EpisodeDownloadResult,
	dir string,
) {
	defer wg.Done()

	for job := range jobs {
		res := EpisodeDownloadResult{ItemID: job.item.Base().ID, Title: job.item.DisplayTitle()}
		if err := limiter.Wait(ctx); err != nil {
			res.Error = err
		} else {
			res = q.downloadEpisode(ctx, job, dir, res)
		}
		if res.Error != nil {
			res.Message = res.Error.Error()
		}
		results <- res
	}
}

func (q *Queries) downloadEpisode(ctx context.Context, job episodeDownloadJob, dir string, res EpisodeDownloadResult) EpisodeDownloadResult {
	path := filepath.Join(dir, EpisodeFilename(job.index, res.Title, job.ref.Filename))
	f, err := os.Create(path)
	if err != nil {
		res.Error = fmt.Errorf("failed to create file: %w", err)
		return res
	}

	n, err := q.svc.DownloadFile(ctx, q.svc.FileURL(job.ref, true), f)
	closeErr := f.Close()
	if err = errors.Join(err, closeErr); err != nil {
		os.Remove(path)
		res.Error = fmt.Errorf("download failed: %w", err)
		return res
	}

	q.logger.Debug("episode downloaded", "item", res.ItemID, "path", path, "bytes", n)
	res.Path = path
	res.Size = n
	res.Success = true
	return res
}

// EpisodeFilename builds "{index:03}-{slug}{ext}" where ext comes from the stored file name.
func EpisodeFilename(index int, title, stored string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return r
		case unicode.IsSpace(r), r == '.':
			return '-'
		default:
			return -1
		}
	}, strings.TrimSpace(title))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "episode"
	}
	if r := []rune(slug); len(r) > 80 {
		slug = string(r[:80])
	}
	return fmt.Sprintf("%03d-%s%s", index, slug, filepath.Ext(stored))
}
