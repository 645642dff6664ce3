package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"croftsim/internal/persistence/r2s3"
)

// r2MirrorRuntime wraps the optional recording mirror; disabled unless
// CROFT_R2_MIRROR=true with full credentials in the environment.
type r2MirrorRuntime struct {
	enabled bool
	mirror  *r2s3.Mirror
}

func buildR2MirrorRuntime(dataDir string, logger *log.Logger) (*r2MirrorRuntime, error) {
	if !envBool("CROFT_R2_MIRROR", false) {
		return &r2MirrorRuntime{enabled: false}, nil
	}

	endpoint := strings.TrimSpace(os.Getenv("CROFT_R2_ENDPOINT"))
	bucket := strings.TrimSpace(os.Getenv("CROFT_R2_BUCKET"))
	accessKeyID := strings.TrimSpace(os.Getenv("CROFT_R2_ACCESS_KEY_ID"))
	secretAccessKey := strings.TrimSpace(os.Getenv("CROFT_R2_SECRET_ACCESS_KEY"))
	prefix := strings.TrimSpace(os.Getenv("CROFT_R2_PREFIX"))

	if endpoint == "" || bucket == "" || accessKeyID == "" || secretAccessKey == "" {
		return nil, fmt.Errorf("CROFT_R2_MIRROR=true but CROFT_R2_ENDPOINT/CROFT_R2_BUCKET/CROFT_R2_ACCESS_KEY_ID/CROFT_R2_SECRET_ACCESS_KEY are not fully set")
	}

	client, err := r2s3.New(endpoint, bucket, accessKeyID, secretAccessKey)
	if err != nil {
		return nil, err
	}

	workers := envInt("CROFT_R2_UPLOAD_WORKERS", 2)
	mirror := r2s3.NewMirror(client, dataDir, prefix, workers, 0, 0, logger)

	return &r2MirrorRuntime{enabled: true, mirror: mirror}, nil
}

func (r *r2MirrorRuntime) Close() {
	if r == nil || r.mirror == nil {
		return
	}
	r.mirror.Close()
}

func (r *r2MirrorRuntime) Enqueue(localPath string) {
	if r == nil || !r.enabled || r.mirror == nil {
		return
	}
	r.mirror.Enqueue(localPath)
}

func writeR2MirrorMetrics(rw http.ResponseWriter, r *r2MirrorRuntime) {
	if r == nil || !r.enabled || r.mirror == nil {
		return
	}
	s := r.mirror.Stats()

	fmt.Fprintf(rw, "# HELP croftsim_r2_mirror_queue_depth Current mirror queue depth.\n")
	fmt.Fprintf(rw, "# TYPE croftsim_r2_mirror_queue_depth gauge\n")
	fmt.Fprintf(rw, "croftsim_r2_mirror_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP croftsim_r2_mirror_enqueued_total Total mirror enqueue attempts.\n")
	fmt.Fprintf(rw, "# TYPE croftsim_r2_mirror_enqueued_total counter\n")
	fmt.Fprintf(rw, "croftsim_r2_mirror_enqueued_total %d\n", s.Enqueued)

	fmt.Fprintf(rw, "# HELP croftsim_r2_mirror_dropped_total Total files dropped because the queue stayed saturated.\n")
	fmt.Fprintf(rw, "# TYPE croftsim_r2_mirror_dropped_total counter\n")
	fmt.Fprintf(rw, "croftsim_r2_mirror_dropped_total %d\n", s.Dropped)

	fmt.Fprintf(rw, "# HELP croftsim_r2_mirror_upload_success_total Total successful uploads.\n")
	fmt.Fprintf(rw, "# TYPE croftsim_r2_mirror_upload_success_total counter\n")
	fmt.Fprintf(rw, "croftsim_r2_mirror_upload_success_total %d\n", s.Uploaded)

	fmt.Fprintf(rw, "# HELP croftsim_r2_mirror_upload_fail_total Total failed uploads after retry.\n")
	fmt.Fprintf(rw, "# TYPE croftsim_r2_mirror_upload_fail_total counter\n")
	fmt.Fprintf(rw, "croftsim_r2_mirror_upload_fail_total %d\n", s.Failed)

	fmt.Fprintf(rw, "# HELP croftsim_r2_mirror_last_success_unix Unix timestamp of the last successful upload.\n")
	fmt.Fprintf(rw, "# TYPE croftsim_r2_mirror_last_success_unix gauge\n")
	fmt.Fprintf(rw, "croftsim_r2_mirror_last_success_unix %d\n", s.LastSuccess)
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
