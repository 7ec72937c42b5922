package canfs

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	lru "github.com/hashicorp/golang-lru"
)

// statCacheSize bounds the number of cached object listings. Stat is
// called once per task for the same input object, so even a small cache
// eliminates repeated ListObjects round-trips.
const statCacheSize = 1024

// s3ReaderChunkSize is the size of the ranged GETs a reader issues.
const s3ReaderChunkSize int64 = 20 * 1024 * 1024

// S3FileSystem is the FileSystem backend for AWS S3. Paths are full
// s3://bucket/key URIs.
type S3FileSystem struct {
	Client    s3iface.S3API
	statCache *lru.Cache
}

func parseS3URI(uri string) (*url.URL, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme != "s3" {
		return nil, fmt.Errorf("invalid s3 URI: %s", uri)
	}
	parsed.Path = strings.TrimPrefix(parsed.Path, "/")
	return parsed, nil
}

func (s *S3FileSystem) ListFiles(pathGlob string) ([]FileInfo, error) {
	parsed, err := parseS3URI(pathGlob)
	if err != nil {
		return nil, err
	}

	// List from the longest glob-free prefix.
	prefix := parsed.Path
	if i := strings.IndexAny(prefix, "*?["); i >= 0 {
		prefix = prefix[:i]
	}

	s3Files := make([]FileInfo, 0)
	params := &s3.ListObjectsInput{
		Bucket: aws.String(parsed.Host),
		Prefix: aws.String(prefix),
	}
	err = s.Client.ListObjectsPages(params,
		func(page *s3.ListObjectsOutput, _ bool) bool {
			for _, object := range page.Contents {
				matched, err := path.Match(parsed.Path, *object.Key)
				if err == nil && (matched || *object.Key == parsed.Path) {
					s3Files = append(s3Files, FileInfo{
						Name: fmt.Sprintf("s3://%s/%s", parsed.Host, *object.Key),
						Size: *object.Size,
					})
				}
			}
			return true
		})

	return s3Files, err
}

func (s *S3FileSystem) OpenReader(filePath string, startAt int64) (io.ReadCloser, error) {
	parsed, err := parseS3URI(filePath)
	if err != nil {
		return nil, err
	}

	fInfo, err := s.Stat(filePath)
	if err != nil {
		return nil, err
	}

	reader := &s3Reader{
		client:    s.Client,
		bucket:    parsed.Host,
		key:       parsed.Path,
		offset:    startAt,
		chunkSize: s3ReaderChunkSize,
		totalSize: fInfo.Size,
	}
	err = reader.loadNextChunk()
	return reader, err
}

func (s *S3FileSystem) OpenWriter(filePath string) (io.WriteCloser, error) {
	parsed, err := parseS3URI(filePath)
	if err != nil {
		return nil, err
	}

	return newS3Writer(s.Client, parsed.Host, parsed.Path), nil
}

func (s *S3FileSystem) Stat(filePath string) (FileInfo, error) {
	if cached, ok := s.statCache.Get(filePath); ok {
		return cached.(FileInfo), nil
	}

	parsed, err := parseS3URI(filePath)
	if err != nil {
		return FileInfo{}, err
	}

	params := &s3.ListObjectsInput{
		Bucket: aws.String(parsed.Host),
		Prefix: aws.String(parsed.Path),
	}
	result, err := s.Client.ListObjects(params)
	if err != nil {
		return FileInfo{}, err
	}

	for _, object := range result.Contents {
		if *object.Key == parsed.Path {
			fInfo := FileInfo{
				Name: filePath,
				Size: *object.Size,
			}
			s.statCache.Add(filePath, fInfo)
			return fInfo, nil
		}
	}

	return FileInfo{}, fmt.Errorf("no file found at %s", filePath)
}

func (s *S3FileSystem) Init() error {
	cache, err := lru.New(statCacheSize)
	if err != nil {
		return err
	}
	s.statCache = cache

	if s.Client != nil {
		return nil
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return err
	}
	s.Client = s3.New(sess)
	return nil
}

func (s *S3FileSystem) Join(elem ...string) string {
	if len(elem) == 0 {
		return ""
	}
	joined := strings.TrimSuffix(elem[0], "/")
	for _, e := range elem[1:] {
		joined += "/" + strings.Trim(e, "/")
	}
	return joined
}
