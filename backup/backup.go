// Package backup stores snapshots of linedb files in an S3-compatible
// storage (S3, Backblaze, Cloudflare R2, minio)
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kjk/linedb/atomicfile"
	"github.com/kjk/linedb/linedb"
	"github.com/kjk/linedb/log"
	"github.com/kjk/linedb/u"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// snapshots are uploaded brotli-compressed
const snapshotExt = ".br"

type Config struct {
	Access   string `yaml:"access"`
	Secret   string `yaml:"secret"`
	Bucket   string `yaml:"bucket"`
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	// remote paths start with Prefix, e.g. "backups/"
	Prefix string `yaml:"prefix"`
	// use http instead of https, for a local minio
	Insecure bool `yaml:"insecure"`

	RequestTrace io.Writer `yaml:"-"`
}

// Validate checks that all required fields are set
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("backup: must provide config")
	}
	var missing []string
	if c.Access == "" {
		missing = append(missing, "access")
	}
	if c.Secret == "" {
		missing = append(missing, "secret")
	}
	if c.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if len(missing) > 0 {
		return fmt.Errorf("backup: missing config fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

type Client struct {
	Client *minio.Client
	config *Config
	Bucket string
}

// New creates a client and checks that the bucket exists
func New(ctx context.Context, config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := config
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if c.RequestTrace != nil {
		mc.TraceOn(c.RequestTrace)
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("backup: bucket '%s' doesn't exist", c.Bucket)
	}
	return &Client{
		Client: mc,
		config: config,
		Bucket: c.Bucket,
	}, nil
}

// storeName is the base name of the store file without extension,
// e.g. "users" for "/data/users.db"
func storeName(storePath string) string {
	name := filepath.Base(storePath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// RemotePrefix returns the remote directory of all snapshots of a store
func RemotePrefix(prefix string, storePath string) string {
	return path.Join(prefix, storeName(storePath)) + "/"
}

// RemotePathFor returns remote path of a snapshot of storePath taken at t,
// e.g. "backups/users/2024-06-01_10-05-01.db.br".
// Names sort in time order.
func RemotePathFor(prefix string, storePath string, t time.Time) string {
	name := t.UTC().Format("2006-01-02_15-04-05") + ".db" + snapshotExt
	return RemotePrefix(prefix, storePath) + name
}

// UploadStore exports current records of s and uploads them.
// Returns remote path of the snapshot.
func (c *Client) UploadStore(ctx context.Context, s *linedb.Store) (string, error) {
	timeStart := time.Now()
	remotePath := RemotePathFor(c.config.Prefix, s.Path(), timeStart)

	tmpDir, err := os.MkdirTemp("", "linedb-backup")
	if err != nil {
		return "", err
	}
	defer func() {
		log.IfErrf(os.RemoveAll(tmpDir))
	}()
	tmpPath := filepath.Join(tmpDir, path.Base(remotePath))
	if err = s.Export(tmpPath); err != nil {
		return "", err
	}

	opts := minio.PutObjectOptions{
		ContentType: "application/x-ndjson",
		UserMetadata: map[string]string{
			"linedb-records": fmt.Sprintf("%d", s.Len()),
		},
	}
	info, err := c.Client.FPutObject(ctx, c.Bucket, remotePath, tmpPath, opts)
	if err != nil {
		return "", fmt.Errorf("backup: upload of '%s' as '%s' failed: %w", s.Path(), remotePath, err)
	}
	dur := time.Since(timeStart)
	log.Logf("backup: uploaded %s as %s (%d bytes) in %s\n", s.Path(), remotePath, info.Size, dur)
	log.EventWithDuration("linedb.backup", dur, "path", s.Path(), "remote", remotePath, "size", info.Size)
	return remotePath, nil
}

// Snapshot describes an uploaded snapshot
type Snapshot struct {
	RemotePath   string
	Size         int64
	LastModified time.Time
}

// List returns snapshots of storePath, oldest first
func (c *Client) List(ctx context.Context, storePath string) ([]Snapshot, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    RemotePrefix(c.config.Prefix, storePath),
		Recursive: true,
	}
	var res []Snapshot
	for oi := range c.Client.ListObjects(ctx, c.Bucket, opts) {
		if oi.Err != nil {
			return nil, oi.Err
		}
		if !strings.HasSuffix(oi.Key, snapshotExt) {
			continue
		}
		res = append(res, Snapshot{
			RemotePath:   oi.Key,
			Size:         oi.Size,
			LastModified: oi.LastModified,
		})
	}
	sortSnapshots(res)
	return res, nil
}

func sortSnapshots(a []Snapshot) {
	sort.Slice(a, func(i, j int) bool {
		return a[i].RemotePath < a[j].RemotePath
	})
}

// Latest returns the most recent snapshot of storePath
func (c *Client) Latest(ctx context.Context, storePath string) (*Snapshot, error) {
	snapshots, err := c.List(ctx, storePath)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("backup: no snapshots of %s: %w", storeName(storePath), os.ErrNotExist)
	}
	return &snapshots[len(snapshots)-1], nil
}

// DownloadFileAtomically downloads remotePath to dstPath. dstPath is
// either fully written or not changed.
func (c *Client) DownloadFileAtomically(ctx context.Context, dstPath string, remotePath string) error {
	obj, err := c.Client.GetObject(ctx, c.Bucket, remotePath, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()

	// ensure there's a dir for destination file
	if err = os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return err
	}
	f, err := atomicfile.New(dstPath)
	if err != nil {
		return err
	}
	// no-op after Close, removes a partial download on error
	defer f.Cancel()
	if _, err = io.Copy(f, obj); err != nil {
		return err
	}
	return f.Close()
}

// Restore downloads a snapshot and writes it as an uncompressed log to
// dstPath. The store at dstPath must not be open.
// Returns number of restored records.
func (c *Client) Restore(ctx context.Context, remotePath string, dstPath string) (int, error) {
	tmpDir, err := os.MkdirTemp("", "linedb-restore")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(tmpDir)
	tmpPath := filepath.Join(tmpDir, path.Base(remotePath))
	if err = c.DownloadFileAtomically(ctx, tmpPath, remotePath); err != nil {
		return 0, fmt.Errorf("backup: download of '%s' failed: %w", remotePath, err)
	}
	// parse before overwriting to not replace a good log with a bad snapshot
	records, err := linedb.ReadSnapshot(tmpPath)
	if err != nil {
		return 0, err
	}
	d, err := u.ReadFileMaybeCompressed(tmpPath)
	if err != nil {
		return 0, err
	}
	if err = os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return 0, err
	}
	if err = atomicfile.WriteFile(dstPath, d); err != nil {
		return 0, err
	}
	log.Logf("backup: restored %d records from %s to %s\n", len(records), remotePath, dstPath)
	return len(records), nil
}

// Remove deletes a snapshot
func (c *Client) Remove(ctx context.Context, remotePath string) error {
	return c.Client.RemoveObject(ctx, c.Bucket, remotePath, minio.RemoveObjectOptions{})
}

// Prune removes all but the keep most recent snapshots of storePath.
// Returns number of removed snapshots.
func (c *Client) Prune(ctx context.Context, storePath string, keep int) (int, error) {
	snapshots, err := c.List(ctx, storePath)
	if err != nil {
		return 0, err
	}
	toRemove := prunable(snapshots, keep)
	for _, s := range toRemove {
		if err := c.Remove(ctx, s.RemotePath); err != nil {
			return 0, err
		}
	}
	return len(toRemove), nil
}

// prunable returns snapshots (sorted oldest first) that are not
// among the keep most recent
func prunable(snapshots []Snapshot, keep int) []Snapshot {
	if keep < 0 {
		keep = 0
	}
	if len(snapshots) <= keep {
		return nil
	}
	return snapshots[:len(snapshots)-keep]
}
