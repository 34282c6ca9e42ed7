// Package bucketstore implements an external-memory, partitioned keyed
// store (BHS): keys are staged to a temporary spill file as they are
// added, then partitioned into buckets of a target size, by a
// modulo-free reduction over a 192-bit keyed signature, on first
// iteration.
package bucketstore

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dgryski/go-radixsort"
	"github.com/zeebo/xxh3"

	"github.com/aogurtsov/gosux/broadword"
	"github.com/aogurtsov/gosux/errutil"
)

// Signature is a 192-bit keyed hash of an input key.
type Signature [3]uint64

// Equal reports whether two signatures are bit-for-bit identical.
func (s Signature) Equal(o Signature) bool { return s == o }

var (
	// ErrDuplicateKey is returned when two distinct Add calls produced
	// identical 192-bit signatures within the same bucket.
	ErrDuplicateKey = errors.New("bucketstore: duplicate signature")
	// ErrTooManyKeys is returned when the resulting bucket count would
	// exceed the signed 32-bit index space.
	ErrTooManyKeys = errors.New("bucketstore: too many buckets for int32 index")
)

// laneSeedMix values distinguish the three independent 64-bit hashes
// drawn from a single input seed to build a 192-bit signature, the same
// seeded-streaming-hasher pattern the bit-string types use for their own
// HashWithSeed.
var laneSeedMix = [3]uint64{
	0x0000000000000000,
	0x9E3779B97F4A7C15,
	0xC2B2AE3D27D4EB4F,
}

func signature(key []byte, seed uint64) Signature {
	var sig Signature
	var seedBuf [8]byte
	for lane, mix := range laneSeedMix {
		h := xxh3.New()
		binary.LittleEndian.PutUint64(seedBuf[:], seed^mix)
		h.Write(seedBuf[:])
		h.Write(key)
		sig[lane] = h.Sum64()
	}
	return sig
}

// Hash computes the 192-bit keyed signature for key under seed, the same
// function Buckets uses internally. Exported so downstream structures
// (mph's MPHF/Function) can recompute a key's signature at query time
// without keeping a live Store around.
func Hash(key []byte, seed uint64) Signature {
	return signature(key, seed)
}

// BucketIndex maps a signature to its bucket index among numBuckets
// buckets, via the same modulo-free reduction Buckets uses.
func BucketIndex(sig Signature, numBuckets int) int {
	return int(broadword.Reduce(sig[0], uint64(numBuckets)))
}

// Seed returns the keyed-hash seed currently in effect (the one the most
// recent successful Buckets() call used, or the construction/Reset seed
// if Buckets hasn't run yet).
func (s *Store) Seed() uint64 { return s.seed }

// Entry is one staged (key, value) pair together with its signature.
type Entry struct {
	Signature Signature
	Value     uint64
}

// Bucket is a group of entries sharing the same bucket index.
type Bucket struct {
	Index   int
	Entries []Entry
}

// Store is a bucketed hash store: keys are staged via Add, then
// partitioned into buckets on the first call to Buckets.
type Store struct {
	dir         string
	bucketSize  int
	seed        uint64
	recordsPath string
	recordsFile *os.File
	writer      *bufio.Writer
	count       int

	partitioned bool
	buckets     []Bucket
}

// New creates a Store staging its records under a file in dir (which
// must already exist; the caller owns its lifecycle beyond Close),
// targeting bucketSize keys per bucket, using the given initial seed.
func New(dir string, bucketSize int, seed uint64) (*Store, error) {
	errutil.BugOn(bucketSize <= 0, "bucket size must be positive, got %d", bucketSize)
	f, err := os.CreateTemp(dir, "bucketstore-records-*.bin")
	if err != nil {
		return nil, fmt.Errorf("bucketstore: create spill file: %w", err)
	}
	return &Store{
		dir:         dir,
		bucketSize:  bucketSize,
		seed:        seed,
		recordsPath: f.Name(),
		recordsFile: f,
		writer:      bufio.NewWriter(f),
	}, nil
}

// ErrAlreadyPartitioned is returned by Add once Buckets has partitioned
// the store; call Reset first to stage more keys.
var ErrAlreadyPartitioned = errors.New("bucketstore: Add called after Buckets() partitioned the store")

// Add stages a key and its satellite value. Keys are kept (not just their
// signatures) so Reset can recompute signatures against a new seed
// without the caller re-supplying the input.
func (s *Store) Add(key []byte, value uint64) error {
	if s.partitioned {
		return ErrAlreadyPartitioned
	}
	errutil.BugOn(len(key) > math.MaxUint32, "key too long to length-prefix")
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(key)))
	if _, err := s.writer.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("bucketstore: write key length: %w", err)
	}
	if _, err := s.writer.Write(key); err != nil {
		return fmt.Errorf("bucketstore: write key: %w", err)
	}
	var valBuf [8]byte
	binary.LittleEndian.PutUint64(valBuf[:], value)
	if _, err := s.writer.Write(valBuf[:]); err != nil {
		return fmt.Errorf("bucketstore: write value: %w", err)
	}
	s.count++
	return nil
}

// Count returns the number of keys staged so far.
func (s *Store) Count() int { return s.count }

// Reset clears any cached partition and reseeds the keyed signature
// function; the next call to Buckets re-derives every signature from the
// staged keys using the new seed.
func (s *Store) Reset(seed uint64) {
	s.seed = seed
	s.partitioned = false
	s.buckets = nil
}

// BucketCount returns ceil(n / bucketSize), the number of buckets the
// next partition will use.
func (s *Store) BucketCount() int {
	if s.count == 0 {
		return 0
	}
	return (s.count + s.bucketSize - 1) / s.bucketSize
}

// Buckets partitions the staged keys (if not already done) and returns
// every bucket, including empty ones, ordered by bucket index — the
// returned slice always has exactly BucketCount() entries, and
// buckets[i].Index == i, so a caller can rely on position and Index
// agreeing and on the denominator BucketIndex used during partitioning
// matching len(buckets) at query time. Returns ErrDuplicateKey if two
// distinct keys produced an identical 192-bit signature, and
// ErrTooManyKeys if the bucket count would not fit in a signed 32-bit
// index.
func (s *Store) Buckets() ([]Bucket, error) {
	if s.partitioned {
		return s.buckets, nil
	}
	if err := s.writer.Flush(); err != nil {
		return nil, fmt.Errorf("bucketstore: flush spill file: %w", err)
	}

	numBuckets := s.BucketCount()
	if numBuckets > math.MaxInt32 {
		return nil, ErrTooManyKeys
	}
	if numBuckets == 0 {
		s.partitioned = true
		return nil, nil
	}

	if _, err := s.recordsFile.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("bucketstore: seek spill file: %w", err)
	}
	r := bufio.NewReader(s.recordsFile)

	buckets := make([]Bucket, numBuckets)
	for i := range buckets {
		buckets[i].Index = i
	}
	seen := make(map[Signature]struct{}, s.count)

	var lenBuf [4]byte
	var valBuf [8]byte
	for {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("bucketstore: read key length: %w", err)
		}
		keyLen := binary.LittleEndian.Uint32(lenBuf[:])
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, fmt.Errorf("bucketstore: read key: %w", err)
		}
		if _, err := io.ReadFull(r, valBuf[:]); err != nil {
			return nil, fmt.Errorf("bucketstore: read value: %w", err)
		}
		value := binary.LittleEndian.Uint64(valBuf[:])

		sig := signature(key, s.seed)
		if _, dup := seen[sig]; dup {
			return nil, ErrDuplicateKey
		}
		seen[sig] = struct{}{}

		idx := BucketIndex(sig, numBuckets)
		buckets[idx].Entries = append(buckets[idx].Entries, Entry{Signature: sig, Value: value})
	}

	for i := range buckets {
		if len(buckets[i].Entries) > 0 {
			buckets[i].Entries = sortEntries(buckets[i].Entries)
		}
	}
	s.buckets = buckets
	s.partitioned = true
	return s.buckets, nil
}

// sortEntries returns entries ordered by signature (lane 0, then 1, then
// 2) and, within ties, by value, via a byte-wise radix sort over each
// entry's packed 32-byte encoding. This makes a bucket's entry order a
// pure function of its signatures, independent of Add's insertion order
// or the spill file's on-disk layout, which keeps construction
// reproducible across a Store rebuilt from the same keys in a different
// order.
func sortEntries(entries []Entry) []Entry {
	const recordSize = 3*8 + 8
	packed := make([][]byte, len(entries))
	for i, e := range entries {
		buf := make([]byte, recordSize)
		binary.BigEndian.PutUint64(buf[0:8], e.Signature[0])
		binary.BigEndian.PutUint64(buf[8:16], e.Signature[1])
		binary.BigEndian.PutUint64(buf[16:24], e.Signature[2])
		binary.BigEndian.PutUint64(buf[24:32], e.Value)
		packed[i] = buf
	}
	radixsort.Bytes(packed)

	sorted := make([]Entry, len(entries))
	for i, buf := range packed {
		sorted[i] = Entry{
			Signature: Signature{
				binary.BigEndian.Uint64(buf[0:8]),
				binary.BigEndian.Uint64(buf[8:16]),
				binary.BigEndian.Uint64(buf[16:24]),
			},
			Value: binary.BigEndian.Uint64(buf[24:32]),
		}
	}
	return sorted
}

// Close removes the backing spill file. The Store must not be used
// afterward.
func (s *Store) Close() error {
	path := s.recordsPath
	if err := s.recordsFile.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("bucketstore: close spill file: %w", err)
	}
	return os.Remove(path)
}
