// Package mph builds minimal perfect hash functions and arbitrary static
// functions over a known key set, following the GOV/MWHC construction:
// partition keys into buckets through a bucketstore.Store, build a
// 3-uniform hypergraph per bucket, solve a GF(3) linear system per bucket
// (gf3) for each base-3 digit plane the output value needs, and
// concatenate the per-bucket solutions. For an MPHF, the per-bucket value
// is the key's own dense rank within its bucket (exactly representable in
// ceil(log3(bucketSize)) digit planes, needing no separate compaction
// pass); bucket offsets (an Elias-Fano list) turn that into a dense
// [0, n) global id.
package mph

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/aogurtsov/gosux/broadword"
	"github.com/aogurtsov/gosux/bucketstore"
	"github.com/aogurtsov/gosux/eliasfano"
	"github.com/aogurtsov/gosux/errutil"
	"github.com/aogurtsov/gosux/gf3"
	"github.com/aogurtsov/gosux/internal/sstat"
)

// Config tunes the construction.
type Config struct {
	// BucketKeysTarget is the target number of keys per bucket (the
	// spec's "≈256" figure is a reasonable default).
	BucketKeysTarget int
	// Expansion is the per-bucket vertex-count multiplier c (typically
	// 1.10-1.23): a bucket with k keys gets ceil(c*k) hypergraph
	// vertices.
	Expansion float64
	// MaxSubSeedRetries bounds per-bucket retries with a fresh sub-seed
	// before the whole build signals a global retry.
	MaxSubSeedRetries int
	// MaxGlobalRetries bounds reseeding the bucketstore itself.
	MaxGlobalRetries int
	// TempDir is where the bucketstore stages its spill file.
	TempDir string
}

// DefaultConfig returns the spec's illustrative tuning (§4.MPH step 2).
func DefaultConfig(tempDir string) Config {
	return Config{
		BucketKeysTarget:  256,
		Expansion:         1.23,
		MaxSubSeedRetries: 20,
		MaxGlobalRetries:  20,
		TempDir:           tempDir,
	}
}

// ErrBuildExhausted is returned when every global retry failed to produce
// a solvable system.
var ErrBuildExhausted = errors.New("mph: exhausted all retries")

// bucketLayout records, per bucket, the vertex count and the offset into
// the global per-plane solution arrays its vertices start at.
type bucketLayout struct {
	vertexCount uint64
	offset      uint64
	// subSeed is the sub-seed solveBucketPlanes needed to find a solvable
	// hyperedge draw for this bucket (1 if the first attempt succeeded).
	// Query time must mix it into a key's signature the same way before
	// deriving vertex indices, or it will probe the wrong vertices.
	subSeed uint64
}

// digitsFor returns the number of base-3 digits needed to represent every
// value in [0, n): the smallest d with 3^d >= n. digitsFor(0) and
// digitsFor(1) are both 0 (a single possible value needs no digits).
func digitsFor(n uint64) int {
	d := 0
	cap3 := uint64(1)
	for cap3 < n {
		cap3 *= 3
		d++
	}
	return d
}

// vertexIndices derives the three hyperedge vertex indices for a key's
// signature within a bucket of vertexCount vertices. Lane 0 is rotated
// first: its high bits already picked the bucket (BucketIndex), so reducing
// it as is would confine every key's first vertex to a small slice of the
// bucket's vertices.
func vertexIndices(sig bucketstore.Signature, vertexCount uint64) [3]int {
	return [3]int{
		int(broadword.Reduce(bits.RotateLeft64(sig[0], 32), vertexCount)),
		int(broadword.Reduce(sig[1], vertexCount)),
		int(broadword.Reduce(sig[2], vertexCount)),
	}
}

// mixSubSeed perturbs a signature's three lanes with a per-retry seed so
// a failed bucket solve gets an independent hyperedge draw on retry,
// without needing to re-hash the original key.
func mixSubSeed(sig bucketstore.Signature, subSeed uint64) bucketstore.Signature {
	if subSeed == 1 {
		return sig
	}
	return bucketstore.Signature{
		sig[0] ^ subSeed,
		sig[1] ^ (subSeed * 0x9E3779B97F4A7C15),
		sig[2] ^ (subSeed * 0xC2B2AE3D27D4EB4F),
	}
}

// solveBucketPlanes solves numPlanes independent GF(3) systems sharing the
// same per-key hyperedge (vars are identical across planes; only the
// constant differs), retrying with a fresh sub-seed (which redraws the
// hyperedge for every plane together, keeping them consistent) when any
// plane fails to solve.
func solveBucketPlanes(b bucketstore.Bucket, vertexCount uint64, numPlanes int, valueOf func(localIdx int, e bucketstore.Entry) uint64, maxRetries int) ([][]uint8, uint64, bool) {
	var subSeed uint64 = 1
	for attempt := 0; attempt < maxRetries; attempt++ {
		varsPerEntry := make([][3]int, len(b.Entries))
		for i, e := range b.Entries {
			sig := mixSubSeed(e.Signature, subSeed)
			varsPerEntry[i] = vertexIndices(sig, vertexCount)
		}

		planes := make([][]uint8, numPlanes)
		ok := true
		for p := 0; p < numPlanes && ok; p++ {
			sys := gf3.NewSystem(int(vertexCount))
			for i, e := range b.Entries {
				v := valueOf(i, e)
				digit := uint8((v / pow3(p)) % 3)
				sys.Add(gf3.NewEquation(varsPerEntry[i], digit))
			}
			sol, solved := sys.SolveLazy()
			if !solved {
				ok = false
				break
			}
			planes[p] = sol
		}
		if ok {
			return planes, subSeed, true
		}
		subSeed = subSeed*2862933555777941757 + 3037000493
	}
	return nil, 0, false
}

func pow3(p int) uint64 {
	r := uint64(1)
	for i := 0; i < p; i++ {
		r *= 3
	}
	return r
}

// buildResult is the shared layout every query (MPHF or Function) reads:
// per-bucket vertex counts/offsets and the solved digit planes.
type buildResult struct {
	n          uint64
	numBuckets int
	layouts    []bucketLayout
	offsets    *eliasfano.List // cumulative bucket *key* offsets (n+1 entries); nil only when n==0
	planes     [][]uint8       // planes[p] is one global per-vertex digit array, indexed by layout offset+localVertex
	numPlanes  int
	seed       uint64
}

func build(keys [][]byte, numPlanesFn func(buckets []bucketstore.Bucket) int, valueOf func(bucketIdx int, localIdx int, e bucketstore.Entry) uint64, needOffsets bool, cfg Config) (*buildResult, error) {
	store, err := bucketstore.New(cfg.TempDir, cfg.BucketKeysTarget, 1)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	for i, k := range keys {
		if err := store.Add(k, uint64(i)); err != nil {
			return nil, err
		}
	}

	var masterSeed uint64 = 1
	for attempt := 0; attempt < cfg.MaxGlobalRetries; attempt++ {
		if attempt > 0 {
			masterSeed = masterSeed*6364136223846793005 + 1
			store.Reset(masterSeed)
		}
		buckets, err := store.Buckets()
		if errors.Is(err, bucketstore.ErrDuplicateKey) {
			continue // distinct keys collided at full signature width; reseed and retry
		}
		if err != nil {
			return nil, err
		}

		res, ok := tryBuild(buckets, numPlanesFn(buckets), valueOf, needOffsets, cfg)
		if ok {
			res.seed = store.Seed()
			return res, nil
		}
	}
	return nil, ErrBuildExhausted
}

func tryBuild(buckets []bucketstore.Bucket, numPlanes int, valueOf func(bucketIdx, localIdx int, e bucketstore.Entry) uint64, needOffsets bool, cfg Config) (*buildResult, bool) {
	layouts := make([]bucketLayout, len(buckets))
	planes := make([][]uint8, numPlanes)
	var offset uint64
	var keyOffsets []uint64
	var n uint64

	for bi, b := range buckets {
		vertexCount := uint64(math.Ceil(float64(len(b.Entries)) * cfg.Expansion))
		solved, subSeed, ok := solveBucketPlanes(b, vertexCount, numPlanes, func(localIdx int, e bucketstore.Entry) uint64 {
			return valueOf(bi, localIdx, e)
		}, cfg.MaxSubSeedRetries)
		if !ok {
			return nil, false
		}
		layouts[bi] = bucketLayout{vertexCount: vertexCount, offset: offset, subSeed: subSeed}
		if needOffsets {
			keyOffsets = append(keyOffsets, n)
		}
		for p := 0; p < numPlanes; p++ {
			planes[p] = append(planes[p], solved[p]...)
		}
		offset += vertexCount
		n += uint64(len(b.Entries))
	}

	res := &buildResult{
		n:          n,
		numBuckets: len(buckets),
		layouts:    layouts,
		planes:     planes,
		numPlanes:  numPlanes,
	}
	if needOffsets && n > 0 {
		keyOffsets = append(keyOffsets, n)
		res.offsets = eliasfano.Build(keyOffsets, n+1)
	}
	return res, true
}

func (r *buildResult) bucketFor(key []byte) (bucketIdx int, sig bucketstore.Signature) {
	sig = bucketstore.Hash(key, r.seed)
	return bucketstore.BucketIndex(sig, r.numBuckets), sig
}

func (r *buildResult) decode(bucketIdx int, sig bucketstore.Signature) uint64 {
	errutil.BugOn(bucketIdx < 0 || bucketIdx >= r.numBuckets, "bucket index %d out of range", bucketIdx)
	layout := r.layouts[bucketIdx]
	vars := vertexIndices(mixSubSeed(sig, layout.subSeed), layout.vertexCount)
	global := [3]int{int(layout.offset) + vars[0], int(layout.offset) + vars[1], int(layout.offset) + vars[2]}
	if r.numPlanes == 0 {
		return 0
	}
	var value uint64
	for p, plane := range r.planes {
		var sum uint8
		for _, g := range global {
			sum = gf3.AddMod3(sum, plane[g])
		}
		value += uint64(sum) * pow3(p)
	}
	return value
}

func (r *buildResult) numBits() uint64 {
	var total uint64
	if len(r.planes) > 0 {
		total = uint64(len(r.planes)) * uint64(len(r.planes[0])) * 2
	}
	if r.offsets != nil {
		total += r.offsets.Size64()
	}
	return total
}

func (r *buildResult) report(name string) sstat.Report {
	var planeBits uint64
	if len(r.planes) > 0 {
		planeBits = uint64(len(r.planes)) * uint64(len(r.planes[0])) * 2
	}
	children := []sstat.Report{sstat.Leaf("digit-planes", planeBits)}
	if r.offsets != nil {
		children = append(children, r.offsets.Report())
	}
	return sstat.Node(name, children...)
}

// MPHF is a minimal perfect hash function over a fixed key set: GetLong
// restricted to the build-time key set is a bijection onto [0, NumKeys()).
type MPHF struct {
	res *buildResult
}

// Build constructs an MPHF over keys. Each key's value is its own dense
// rank within its bucket (0..bucketSize-1), stored across
// ceil(log3(maxBucketSize)) digit planes (maxBucketSize computed from the
// actual partition, not just the target, so an oversized bucket never
// silently loses high digits); GetLong adds the bucket's cumulative key
// offset to recover a value dense over the whole key set.
func Build(keys [][]byte, cfg Config) (*MPHF, error) {
	numPlanesFn := func(buckets []bucketstore.Bucket) int {
		var maxLen int
		for _, b := range buckets {
			if len(b.Entries) > maxLen {
				maxLen = len(b.Entries)
			}
		}
		return digitsFor(uint64(maxLen))
	}
	res, err := build(keys, numPlanesFn, func(_ int, localIdx int, _ bucketstore.Entry) uint64 {
		return uint64(localIdx)
	}, true, cfg)
	if err != nil {
		return nil, err
	}
	return &MPHF{res: res}, nil
}

// NumKeys returns the number of keys the MPHF was built over.
func (m *MPHF) NumKeys() uint64 { return m.res.n }

// NumBits reports the structure's size in bits, counting each digit-plane
// entry at 2 bits (the packed width of a base-3 digit); the planes
// themselves hold one byte per entry.
func (m *MPHF) NumBits() uint64 { return m.res.numBits() }

// GetLong returns the minimal perfect hash value for a key. The result is
// only meaningful (and only guaranteed distinct) for keys in the build-time
// key set; callers must not rely on any particular value for keys outside it.
func (m *MPHF) GetLong(key []byte) uint64 {
	bucketIdx, sig := m.res.bucketFor(key)
	local := m.res.decode(bucketIdx, sig)
	return m.res.offsets.Get(uint64(bucketIdx)) + local
}

// String reports a short human-readable summary (key count, total size).
func (m *MPHF) String() string {
	return fmt.Sprintf("mph.MPHF{n=%d, bits=%d}", m.res.n, m.res.numBits())
}

// Report breaks the MPHF's size into its digit planes and bucket-offset
// table.
func (m *MPHF) Report() sstat.Report { return m.res.report("mph.MPHF") }

// Function is an arbitrary static map key -> value over a fixed key set,
// with every value bounded by [0, 2^Width). Unlike MPHF, GetLong(key) for
// a key outside the build set returns an arbitrary value in range rather
// than one of the build-time values, and there is no promise of
// injectivity.
type Function struct {
	res   *buildResult
	width int
}

// BuildFunction constructs a static function mapping keys[i] to values[i],
// each value required to be < 1<<width (width in [1,64)).
func BuildFunction(keys [][]byte, values []uint64, width int, cfg Config) (*Function, error) {
	errutil.BugOn(len(keys) != len(values), "keys and values length mismatch")
	errutil.BugOn(width <= 0 || width >= 64, "width %d out of range [1,64)", width)
	bound := uint64(1) << uint(width)
	for _, v := range values {
		if v >= bound {
			return nil, fmt.Errorf("mph: value %d does not fit in width %d", v, width)
		}
	}
	numPlanes := digitsFor(bound)
	// valueOf needs the *global* key index (the position in the keys
	// slice), which is exactly the satellite value bucketstore.Add was
	// given (uint64(i) in build's staging loop), regardless of bucket.
	res, err := build(keys, func([]bucketstore.Bucket) int { return numPlanes }, func(_ int, _ int, e bucketstore.Entry) uint64 {
		return values[e.Value]
	}, false, cfg)
	if err != nil {
		return nil, err
	}
	return &Function{res: res, width: width}, nil
}

// NumKeys returns the number of keys the function was built over.
func (f *Function) NumKeys() uint64 { return f.res.n }

// Width returns the bit width every returned value fits within.
func (f *Function) Width() int { return f.width }

// NumBits reports the structure's size in bits, counting each digit-plane
// entry at 2 bits; the planes themselves hold one byte per entry.
func (f *Function) NumBits() uint64 { return f.res.numBits() }

// Report breaks the Function's size into its digit planes.
func (f *Function) Report() sstat.Report { return f.res.report("mph.Function") }

// GetLong returns the stored value for key, exactly reproducing the
// build-time value for any key in the build set.
func (f *Function) GetLong(key []byte) uint64 {
	bucketIdx, sig := f.res.bucketFor(key)
	return f.res.decode(bucketIdx, sig) & (uint64(1)<<uint(f.width) - 1)
}
