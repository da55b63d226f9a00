// Package store persists simulation run summaries in a LevelDB database. Each
// run is stored under its ID as a little endian NBT compound.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/df-mc/goleveldb/leveldb/storage"
	"github.com/df-mc/goleveldb/leveldb/util"
	"github.com/dm-vev/canopy/sim"
	"github.com/dm-vev/canopy/sim/growth"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// ErrNotFound is returned when no run with the requested ID is stored.
var ErrNotFound = errors.New("run not found")

// version is the record format written by Save.
const version = 1

var runPrefix = []byte("run/")

// Config holds the settings of a DB.
type Config struct {
	// Log is the Logger used to report stored and removed runs. If nil, Log is
	// set to slog.Default().
	Log *slog.Logger
	// Compression specifies the compression to use for compressing new data in
	// the database. Defaults to opt.FlateCompression.
	Compression opt.Compression
	// BlockSize specifies the size of blocks to be compressed. Defaults to
	// 16KiB.
	BlockSize int
}

// DB is a run database backed by LevelDB. It is safe for concurrent use.
type DB struct {
	conf Config
	ldb  *leveldb.DB
}

// Open opens the database in the directory passed, creating it if it does not
// yet exist.
func (conf Config) Open(dir string) (*DB, error) {
	conf = conf.withDefaults()
	ldb, err := leveldb.OpenFile(dir, conf.options())
	if err != nil {
		return nil, fmt.Errorf("open run db: %w", err)
	}
	return &DB{conf: conf, ldb: ldb}, nil
}

// OpenStorage opens a database on top of an arbitrary LevelDB storage, such as
// storage.NewMemStorage().
func (conf Config) OpenStorage(s storage.Storage) (*DB, error) {
	conf = conf.withDefaults()
	ldb, err := leveldb.Open(s, conf.options())
	if err != nil {
		return nil, fmt.Errorf("open run db: %w", err)
	}
	return &DB{conf: conf, ldb: ldb}, nil
}

func (conf Config) withDefaults() Config {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Compression == opt.DefaultCompression {
		conf.Compression = opt.FlateCompression
	}
	if conf.BlockSize == 0 {
		conf.BlockSize = 16 * opt.KiB
	}
	return conf
}

func (conf Config) options() *opt.Options {
	return &opt.Options{Compression: conf.Compression, BlockSize: conf.BlockSize}
}

// Save stores res, replacing any run previously stored under the same ID.
func (db *DB) Save(res sim.Result) error {
	data, err := marshal(encodeRun(res))
	if err != nil {
		return fmt.Errorf("save run %v: encode: %w", res.ID, err)
	}
	if err := db.ldb.Put(key(res.ID), data, nil); err != nil {
		return fmt.Errorf("save run %v: %w", res.ID, err)
	}
	db.conf.Log.Debug("stored run", "run", res.ID, "trees", len(res.Trees), "size", len(data))
	return nil
}

// Load returns the run stored under id. ErrNotFound is returned if no such run
// exists.
func (db *DB) Load(id uuid.UUID) (sim.Result, error) {
	data, err := db.ldb.Get(key(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return sim.Result{}, fmt.Errorf("load run %v: %w", id, ErrNotFound)
	} else if err != nil {
		return sim.Result{}, fmt.Errorf("load run %v: %w", id, err)
	}
	res, err := decodeRun(data)
	if err != nil {
		return sim.Result{}, fmt.Errorf("load run %v: %w", id, err)
	}
	return res, nil
}

// List returns all stored runs ordered by ID. Since run IDs are time ordered,
// older runs come first.
func (db *DB) List() ([]sim.Result, error) {
	iter := db.ldb.NewIterator(util.BytesPrefix(runPrefix), nil)
	defer iter.Release()

	var runs []sim.Result
	for iter.Next() {
		res, err := decodeRun(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("list runs: key %x: %w", iter.Key(), err)
		}
		runs = append(runs, res)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Delete removes the run stored under id. ErrNotFound is returned if no such
// run exists.
func (db *DB) Delete(id uuid.UUID) error {
	k := key(id)
	ok, err := db.ldb.Has(k, nil)
	if err != nil {
		return fmt.Errorf("delete run %v: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("delete run %v: %w", id, ErrNotFound)
	}
	if err := db.ldb.Delete(k, nil); err != nil {
		return fmt.Errorf("delete run %v: %w", id, err)
	}
	db.conf.Log.Debug("removed run", "run", id)
	return nil
}

// Close closes the underlying database.
func (db *DB) Close() error {
	return db.ldb.Close()
}

func key(id uuid.UUID) []byte {
	return append(bytes.Clone(runPrefix), id[:]...)
}

// runRecord is the stored form of a sim.Result. NBT has no unsigned or boolean
// tags, so wider signed types are used throughout.
type runRecord struct {
	Version    int32        `nbt:"version"`
	ID         string       `nbt:"id"`
	Seed       int64        `nbt:"seed"`
	Started    int64        `nbt:"started"`
	Duration   int64        `nbt:"duration"`
	Steps      int32        `nbt:"steps"`
	Stop       int32        `nbt:"stop"`
	Points     int32        `nbt:"points"`
	FreePoints int32        `nbt:"free_points"`
	Trees      []treeRecord `nbt:"trees"`
}

type treeRecord struct {
	ID             int32   `nbt:"id"`
	RootX          float64 `nbt:"root_x"`
	RootY          float64 `nbt:"root_y"`
	RootZ          float64 `nbt:"root_z"`
	TrunkHeight    float64 `nbt:"trunk_height"`
	Height         float64 `nbt:"height"`
	Nodes          int32   `nbt:"nodes"`
	Consumed       int32   `nbt:"consumed"`
	Quota          int32   `nbt:"quota"`
	GrowthRadius   float64 `nbt:"growth_radius"`
	PointsInRadius int32   `nbt:"points_in_radius"`
	Neighbours     int32   `nbt:"neighbours"`
	Stop           int32   `nbt:"stop"`
}

func encodeRun(res sim.Result) runRecord {
	rec := runRecord{
		Version:    version,
		ID:         res.ID.String(),
		Seed:       int64(res.Seed),
		Started:    res.Started.UnixNano(),
		Duration:   int64(res.Duration),
		Steps:      int32(res.Steps),
		Stop:       int32(res.Stop),
		Points:     int32(res.Points),
		FreePoints: int32(res.FreePoints),
		Trees:      make([]treeRecord, len(res.Trees)),
	}
	for i, t := range res.Trees {
		x, y, z := t.Root.Elem()
		rec.Trees[i] = treeRecord{
			ID:             int32(t.ID),
			RootX:          x,
			RootY:          y,
			RootZ:          z,
			TrunkHeight:    t.TrunkHeight,
			Height:         t.Height,
			Nodes:          int32(t.Nodes),
			Consumed:       int32(t.Consumed),
			Quota:          int32(t.Quota),
			GrowthRadius:   t.GrowthRadius,
			PointsInRadius: int32(t.PointsInRadius),
			Neighbours:     int32(t.Neighbours),
			Stop:           int32(t.Stop),
		}
	}
	return rec
}

func marshal(rec runRecord) ([]byte, error) {
	return nbt.MarshalEncoding(rec, nbt.LittleEndian)
}

func decodeRun(data []byte) (sim.Result, error) {
	var rec runRecord
	if err := nbt.UnmarshalEncoding(data, &rec, nbt.LittleEndian); err != nil {
		return sim.Result{}, fmt.Errorf("decode run: %w", err)
	}
	if rec.Version != version {
		return sim.Result{}, fmt.Errorf("decode run: unsupported record version %d", rec.Version)
	}
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return sim.Result{}, fmt.Errorf("decode run: %w", err)
	}
	res := sim.Result{
		ID:         id,
		Seed:       uint64(rec.Seed),
		Started:    time.Unix(0, rec.Started),
		Duration:   time.Duration(rec.Duration),
		Steps:      int(rec.Steps),
		Stop:       sim.StopReason(rec.Stop),
		Points:     int(rec.Points),
		FreePoints: int(rec.FreePoints),
		Trees:      make([]sim.TreeSummary, len(rec.Trees)),
	}
	for i, t := range rec.Trees {
		res.Trees[i] = sim.TreeSummary{
			ID:             growth.TreeID(t.ID),
			Root:           mgl64.Vec3{t.RootX, t.RootY, t.RootZ},
			TrunkHeight:    t.TrunkHeight,
			Height:         t.Height,
			Nodes:          int(t.Nodes),
			Consumed:       int(t.Consumed),
			Quota:          int(t.Quota),
			GrowthRadius:   t.GrowthRadius,
			PointsInRadius: int(t.PointsInRadius),
			Neighbours:     int(t.Neighbours),
			Stop:           sim.StopReason(t.Stop),
		}
	}
	return res, nil
}
