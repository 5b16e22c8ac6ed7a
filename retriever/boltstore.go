package retriever

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/version"
)

// BoltStore is a durable, on-disk memoization of retriever results
// across resolver runs. Each dependency gets a top-level bucket, named
// after its clone path, so two dependencies never collide regardless
// of host; each bucket holds a "versions" key, and one
// "deps:<revision>" / "ref:<ref>" key per cached lookup. Values are
// plain JSON blobs, kept flat rather than further nested per-field.
type BoltStore struct {
	db     *bolt.DB
	epoch  int64
	logger *log.Logger
}

// OpenBoltStore opens (creating if absent) a BoltDB file under
// cacheRoot/retriever.db. epoch is the unix time before which cached
// version lists are considered stale and ignored, matching boltCache's
// epoch field; cached dependency lists and git-ref pins carry no
// timestamp and are not subject to it.
func OpenBoltStore(cacheRoot string, epoch int64, logger *log.Logger) (*BoltStore, error) {
	path := filepath.Join(cacheRoot, "retriever.db")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "creating cache directory %q", filepath.Dir(path))
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening retriever cache %q", path)
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &BoltStore{db: db, epoch: epoch, logger: logger}, nil
}

// Close releases the underlying BoltDB file.
func (s *BoltStore) Close() error {
	return errors.Wrap(s.db.Close(), "closing retriever cache")
}

type timestampedVersions struct {
	At       int64               `json:"at"`
	Versions []version.Concrete `json:"versions"`
}

func (s *BoltStore) bucketName(dep depid.Dependency) []byte {
	return []byte(dep.ClonePath())
}

func (s *BoltStore) getVersions(dep depid.Dependency) ([]version.Concrete, bool) {
	var out []version.Concrete
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName(dep))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte("versions"))
		if raw == nil {
			return nil
		}
		var tv timestampedVersions
		if err := json.Unmarshal(raw, &tv); err != nil {
			return errors.Wrap(err, "decoding cached versions")
		}
		if tv.At < s.epoch {
			return nil
		}
		out = tv.Versions
		found = true
		return nil
	})
	if err != nil {
		s.logger.Println(errors.Wrapf(err, "reading cached versions for %s", dep))
		return nil, false
	}
	return out, found
}

func (s *BoltStore) putVersions(dep depid.Dependency, vs []version.Concrete, now int64) {
	raw, err := json.Marshal(timestampedVersions{At: now, Versions: vs})
	if err != nil {
		s.logger.Println(errors.Wrapf(err, "encoding versions for %s", dep))
		return
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucketName(dep))
		if err != nil {
			return err
		}
		return b.Put([]byte("versions"), raw)
	})
	if err != nil {
		s.logger.Println(errors.Wrapf(err, "caching versions for %s", dep))
	}
}

func (s *BoltStore) getDependencies(dep depid.Dependency, rev version.PinnedRevision) (DependencyList, bool) {
	var out DependencyList
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName(dep))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte("deps:" + string(rev)))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return errors.Wrap(err, "decoding cached dependency list")
		}
		found = true
		return nil
	})
	if err != nil {
		s.logger.Println(errors.Wrapf(err, "reading cached dependencies for %s@%s", dep, rev))
		return DependencyList{}, false
	}
	return out, found
}

func (s *BoltStore) putDependencies(dep depid.Dependency, rev version.PinnedRevision, dl DependencyList) {
	raw, err := json.Marshal(dl)
	if err != nil {
		s.logger.Println(errors.Wrapf(err, "encoding dependency list for %s@%s", dep, rev))
		return
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucketName(dep))
		if err != nil {
			return err
		}
		return b.Put([]byte("deps:"+string(rev)), raw)
	})
	if err != nil {
		s.logger.Println(errors.Wrapf(err, "caching dependencies for %s@%s", dep, rev))
	}
}

func (s *BoltStore) getGitRef(dep depid.Dependency, ref string) (version.PinnedRevision, bool) {
	var out version.PinnedRevision
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName(dep))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte("ref:" + ref))
		if raw == nil {
			return nil
		}
		out = version.PinnedRevision(raw)
		found = true
		return nil
	})
	if err != nil {
		s.logger.Println(errors.Wrapf(err, "reading cached git ref %s for %s", ref, dep))
		return "", false
	}
	return out, found
}

func (s *BoltStore) putGitRef(dep depid.Dependency, ref string, rev version.PinnedRevision) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucketName(dep))
		if err != nil {
			return err
		}
		return b.Put([]byte("ref:"+ref), []byte(rev))
	})
	if err != nil {
		s.logger.Println(errors.Wrapf(err, "caching git ref %s for %s", ref, dep))
	}
}
