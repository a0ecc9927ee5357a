// Package mockexec is an in-process stand-in for the remote job executor.
// It implements the start/cancel REST surface and the per-job event stream
// with synthesized progress, backed by a real local folder walk for scans.
// Integration tests and the hidden mock-server command both run it.
package mockexec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"batchup/internal/logger"
	"batchup/internal/model"
	"batchup/internal/remote"
)

type Server struct {
	echo       *echo.Echo
	mu         sync.Mutex
	jobs       map[string]*jobRun
	root       string
	frameDelay time.Duration

	// PresentFn decides which scanned files count as already present
	// remotely. Nil means none.
	PresentFn func(path string) bool
}

type jobRun struct {
	kind     model.JobKind
	frames   chan []byte
	cancelCh chan struct{}
	once     sync.Once
}

func (j *jobRun) cancel() {
	j.once.Do(func() { close(j.cancelCh) })
}

func (j *jobRun) cancelled() bool {
	select {
	case <-j.cancelCh:
		return true
	default:
		return false
	}
}

// New builds a mock executor rooted at root. frameDelay paces event frames;
// zero emits them back to back, which is what tests want.
func New(root string, frameDelay time.Duration) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:       e,
		jobs:       make(map[string]*jobRun),
		root:       root,
		frameDelay: frameDelay,
	}
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	g := s.echo.Group("/jobs")
	g.POST("/scan", s.handleStartScan)
	g.POST("/upload", s.handleStartUpload)
	g.POST("/delete", s.handleStartDelete)
	g.POST("/:id/cancel", s.handleCancel)
	g.GET("/:id/events", s.handleEvents)
}

// Handler exposes the server for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(port int) {
	go func() {
		addr := ":" + strconv.Itoa(port)
		logger.Log.Info("mock executor started",
			zap.String("addr", addr),
			zap.String("root", s.root))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("mock executor error", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) addJob(kind model.JobKind) (string, *jobRun) {
	run := &jobRun{
		kind:     kind,
		frames:   make(chan []byte, 64),
		cancelCh: make(chan struct{}),
	}
	id := uuid.NewString()

	s.mu.Lock()
	s.jobs[id] = run
	s.mu.Unlock()

	return id, run
}

func (s *Server) handleStartScan(c echo.Context) error {
	var p remote.ScanParams
	if err := c.Bind(&p); err != nil || p.Folder == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "folder required"})
	}

	batches, total, err := s.walk(p.Folder, p.Exclude)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	id, run := s.addJob(model.JobScan)
	go s.emitScan(id, run, batches, total)

	return c.JSON(http.StatusCreated, remote.StartResponse{JobID: id, TotalItems: total})
}

func (s *Server) handleStartUpload(c echo.Context) error {
	var p remote.UploadParams
	if err := c.Bind(&p); err != nil || len(p.Paths) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "paths required"})
	}

	id, run := s.addJob(model.JobUpload)
	go s.emitUpload(id, run, p.Paths)

	return c.JSON(http.StatusCreated, remote.StartResponse{JobID: id, TotalItems: len(p.Paths)})
}

func (s *Server) handleStartDelete(c echo.Context) error {
	var p remote.DeleteParams
	if err := c.Bind(&p); err != nil || len(p.Paths) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "paths required"})
	}

	id, run := s.addJob(model.JobDelete)
	go s.emitDelete(id, run, p.Paths)

	return c.JSON(http.StatusCreated, remote.StartResponse{JobID: id, TotalItems: len(p.Paths)})
}

func (s *Server) handleCancel(c echo.Context) error {
	s.mu.Lock()
	run, ok := s.jobs[c.Param("id")]
	s.mu.Unlock()

	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown job"})
	}

	run.cancel()
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelling"})
}

func (s *Server) handleEvents(c echo.Context) error {
	s.mu.Lock()
	run, ok := s.jobs[c.Param("id")]
	s.mu.Unlock()

	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown job"})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.WriteHeader(http.StatusOK)

	// Leading comment frame; clients must drop it silently.
	fmt.Fprint(resp, ": keep-alive\n\n")
	resp.Flush()

	for frame := range run.frames {
		if _, err := fmt.Fprintf(resp, "data: %s\n\n", frame); err != nil {
			return nil
		}
		resp.Flush()
	}

	return nil
}

func (s *Server) pace() {
	if s.frameDelay > 0 {
		time.Sleep(s.frameDelay)
	}
}

func (s *Server) push(run *jobRun, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	run.frames <- data
	s.pace()
}

// walk groups the folder's files per directory so scans hydrate
// incrementally, the way the real executor reports them.
func (s *Server) walk(folder string, exclude []string) ([]model.DiscoveryBatch, int, error) {
	base := filepath.Join(s.root, folder)
	perDir := make(map[string][]model.DiscoveredFile)

	err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		for _, pattern := range exclude {
			if ok, _ := filepath.Match(pattern, d.Name()); ok {
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		rel, _ := filepath.Rel(s.root, path)
		dir := filepath.ToSlash(filepath.Dir(rel))
		present := s.PresentFn != nil && s.PresentFn(rel)

		perDir[dir] = append(perDir[dir], model.DiscoveredFile{
			Path:    filepath.ToSlash(rel),
			Name:    d.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Present: present,
		})
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("walk failed: %w", err)
	}

	dirs := make([]string, 0, len(perDir))
	for dir := range perDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	batches := make([]model.DiscoveryBatch, 0, len(dirs))
	total := 0
	for _, dir := range dirs {
		batches = append(batches, model.DiscoveryBatch{Folder: dir, Files: perDir[dir]})
		total += len(perDir[dir])
	}

	return batches, total, nil
}

func (s *Server) emitScan(id string, run *jobRun, batches []model.DiscoveryBatch, total int) {
	defer close(run.frames)

	var bytes int64
	newFiles, present := 0, 0

	for _, batch := range batches {
		if run.cancelled() {
			break
		}

		s.push(run, model.FolderDiscoveredEvent{
			Type:   "folder_discovered",
			JobID:  id,
			Folder: batch.Folder,
			Files:  batch.Files,
		})

		for _, f := range batch.Files {
			bytes += f.Size
			if f.Present {
				present++
			} else {
				newFiles++
			}
		}
	}

	s.push(run, model.ScanCompleteEvent{
		Type:         "scan_complete",
		JobID:        id,
		TotalFiles:   total,
		TotalBytes:   bytes,
		NewFiles:     newFiles,
		PresentFiles: present,
	})
}

func (s *Server) emitUpload(id string, run *jobRun, paths []string) {
	defer close(run.frames)

	for _, path := range paths {
		if run.cancelled() {
			break
		}
		s.push(run, model.FileAnalyzedEvent{
			Type:   "file_analyzed",
			JobID:  id,
			Path:   path,
			Action: "upload",
		})
	}

	done := 0
	for _, path := range paths {
		if run.cancelled() {
			break
		}

		files := []model.UploadFileProgress{{Path: path, Status: "uploading", Percent: 50}}
		s.push(run, model.UploadProgressEvent{
			JobID:     id,
			Status:    "uploading",
			Files:     files,
			Completed: done,
		})
		done++
	}

	status := "completed"
	fileStatus := "completed"
	if run.cancelled() {
		status = "cancelled"
		fileStatus = "cancelled"
	}

	results := make([]model.FileResult, 0, len(paths))
	for _, path := range paths {
		results = append(results, model.FileResult{
			Path:       path,
			Status:     fileStatus,
			RemotePath: "remote/" + path,
			DurationMS: 120,
			Throughput: 1 << 20,
		})
	}

	s.push(run, model.UploadProgressEvent{
		JobID:     id,
		Status:    status,
		Results:   results,
		Completed: len(results),
	})
}

func (s *Server) emitDelete(id string, run *jobRun, paths []string) {
	defer close(run.frames)

	deleted := 0
	for _, path := range paths {
		if run.cancelled() {
			break
		}

		s.push(run, model.DeleteProgressEvent{
			Type:     "delete_progress",
			JobID:    id,
			Deleted:  deleted,
			InFlight: []string{path},
		})
		deleted++
	}

	status := "completed"
	fileStatus := "deleted"
	if run.cancelled() {
		status = "cancelled"
		fileStatus = "cancelled"
	}

	results := make([]model.FileResult, 0, len(paths))
	for _, path := range paths {
		results = append(results, model.FileResult{
			Path:       path,
			Status:     fileStatus,
			DurationMS: 40,
		})
	}

	s.push(run, model.DeleteCompleteEvent{
		Type:    "delete_complete",
		JobID:   id,
		Status:  status,
		Results: results,
		Deleted: deleted,
	})
}
