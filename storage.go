package trackbuilder

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/swdee/go-trackbuilder/store"
)

// SaveTracks stores the tracks of the document at inPath in the SQLite
// database at dbPath under runID.  A new run id is generated when runID is
// empty.  The stored run id is returned.
func SaveTracks(ctx context.Context, inPath, dbPath, runID, notes string,
	opts Options) (string, error) {

	ld, err := loadTracks(inPath, opts)

	if err != nil {
		return "", err
	}

	if err := ld.manager.Finalize(0); err != nil {
		return "", err
	}

	doc, err := exportDocument(ld.manager, ld.frames, ld.categories(opts))

	if err != nil {
		return "", err
	}

	if runID == "" {
		runID = uuid.New().String()
	}

	st, err := store.Open(ctx, dbPath)

	if err != nil {
		return "", err
	}

	defer st.Close()

	if err := st.Save(ctx, runID, notes, doc); err != nil {
		return "", err
	}

	opts.logger().WithFields(logrus.Fields{
		"op":     "store",
		"run_id": runID,
		"steps":  len(doc.Annotations),
		"db":     dbPath,
	}).Info("saved tracks")

	return runID, nil
}

// RestoreTracks writes the tracks stored under runID in the database at
// dbPath to a track document at outPath
func RestoreTracks(ctx context.Context, dbPath, runID, outPath string,
	opts Options) (Summary, error) {

	if err := checkClobber(dbPath, outPath); err != nil {
		return Summary{}, err
	}

	st, err := store.Open(ctx, dbPath)

	if err != nil {
		return Summary{}, err
	}

	defer st.Close()

	doc, err := st.Load(ctx, runID)

	if err != nil {
		return Summary{}, err
	}

	if err := writeDocument(outPath, doc, nil); err != nil {
		return Summary{}, err
	}

	tracks := make(map[int]struct{})

	for _, a := range doc.Annotations {
		tracks[a.TrackID] = struct{}{}
	}

	sum := Summary{Frames: len(doc.Images), Tracks: len(tracks), Steps: len(doc.Annotations)}

	opts.logger().WithFields(sum.Fields()).WithFields(logrus.Fields{
		"op":     "restore",
		"run_id": runID,
		"out":    outPath,
	}).Info("restored tracks")

	return sum, nil
}

// ListRuns returns the runs stored in the database at dbPath
func ListRuns(ctx context.Context, dbPath string) ([]store.Run, error) {

	st, err := store.Open(ctx, dbPath)

	if err != nil {
		return nil, err
	}

	defer st.Close()

	return st.Runs(ctx)
}
