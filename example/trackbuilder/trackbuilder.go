package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/swdee/go-trackbuilder"
	"github.com/swdee/go-trackbuilder/config"
	"github.com/swdee/go-trackbuilder/tracker"
)

const usage = `Usage: trackbuilder <command> [flags]

Commands:
  build    link YOLO annotation files into tracks
  reload   rebuild and relink an existing track file
  rotate   rotate tracks (and optionally images) about the frame center
  reflect  mirror tracks (and optionally images) across a frame mid-line
  draw     render tracks onto their frame images
  plot     chart track trajectories
  store    save, restore or list track runs in a SQLite database

Run 'trackbuilder <command> -h' for the flags of a command.
`

// common holds the flags shared by every command
type common struct {
	configFile *string
	labelFile  *string
	verbose    *bool
	frameW     *float64
	frameH     *float64
	minLength  *int
	maxDist    *float64
	expiration *int
	matcher    *string
}

// addCommon registers the shared flags on fs
func addCommon(fs *flag.FlagSet) *common {
	return &common{
		configFile: fs.String("c", "", "JSON configuration file"),
		labelFile:  fs.String("l", "", "Text file containing class labels, one per line"),
		verbose:    fs.Bool("v", false, "Enable debug logging"),
		frameW:     fs.Float64("W", 0, "Frame width in pixels, overrides configuration"),
		frameH:     fs.Float64("H", 0, "Frame height in pixels, overrides configuration"),
		minLength:  fs.Int("min", -1, "Minimum track length kept when linking, overrides configuration"),
		maxDist:    fs.Float64("d", -1, "Maximum association distance, 0 is unbounded, overrides configuration"),
		expiration: fs.Int("e", -1, "Frames without update before a track expires, 0 never, overrides configuration"),
		matcher:    fs.String("match", "", "Association matcher [greedy|lapjv], overrides configuration"),
	}
}

// options loads the configuration, applies flag overrides and creates the
// run logger
func (c *common) options(cmd string) (trackbuilder.Options, *logrus.Entry, error) {

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if *c.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	log := logger.WithFields(logrus.Fields{
		"run_id":  uuid.New().String(),
		"command": cmd,
	})

	cfg, err := config.Load(*c.configFile)

	if err != nil {
		return trackbuilder.Options{}, log, err
	}

	if *c.frameW > 0 {
		cfg.FrameWidth = *c.frameW
	}
	if *c.frameH > 0 {
		cfg.FrameHeight = *c.frameH
	}
	if *c.minLength >= 0 {
		cfg.MinLength = *c.minLength
	}
	if *c.maxDist >= 0 {
		cfg.MaxDistance = *c.maxDist
	}
	if *c.expiration >= 0 {
		cfg.Expiration = *c.expiration
	}
	if *c.matcher != "" {
		cfg.Matcher = *c.matcher
	}

	if err := cfg.Validate(); err != nil {
		return trackbuilder.Options{}, log, err
	}

	labels, err := trackbuilder.LoadLabels(*c.labelFile)

	if err != nil {
		return trackbuilder.Options{}, log, err
	}

	return trackbuilder.Options{Config: cfg, Labels: labels, Log: log}, log, nil
}

func main() {

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	var log *logrus.Entry

	switch cmd {
	case "build":
		log, err = runBuild(args)
	case "reload":
		log, err = runReload(args)
	case "rotate", "reflect":
		log, err = runTransform(cmd, args)
	case "draw":
		log, err = runDraw(args)
	case "plot":
		log, err = runPlot(args)
	case "store":
		log, err = runStore(args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		if log == nil {
			log = logrus.NewEntry(logrus.StandardLogger())
		}
		log.WithError(err).Fatal("command failed")
	}
}

// parse parses the flags of a command and checks the required ones were set
func parse(fs *flag.FlagSet, args []string, required map[string]*string) error {

	if err := fs.Parse(args); err != nil {
		return err
	}

	var missing []string

	fs.VisitAll(func(f *flag.Flag) {
		if p, ok := required[f.Name]; ok && *p == "" {
			missing = append(missing, "-"+f.Name)
		}
	})

	if len(missing) > 0 {
		fs.Usage()
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}

	return nil
}

func runBuild(args []string) (*logrus.Entry, error) {

	fs := flag.NewFlagSet("build", flag.ExitOnError)
	c := addCommon(fs)
	list := fs.String("i", "", "File list of YOLO annotation files named name.NNN.txt")
	out := fs.String("o", "", "Output track file")
	normalized := fs.Bool("n", false, "Annotation coordinates are normalized to the frame size")

	if err := parse(fs, args, map[string]*string{"i": list, "o": out}); err != nil {
		return nil, err
	}

	opts, log, err := c.options("build")

	if err != nil {
		return log, err
	}

	if *normalized {
		opts.Config.Normalized = true
		if err := opts.Config.Validate(); err != nil {
			return log, err
		}
	}

	_, err = trackbuilder.BuildTracks(*list, *out, opts)
	return log, err
}

func runReload(args []string) (*logrus.Entry, error) {

	fs := flag.NewFlagSet("reload", flag.ExitOnError)
	c := addCommon(fs)
	in := fs.String("i", "", "Input track file")
	out := fs.String("o", "", "Output track file")

	if err := parse(fs, args, map[string]*string{"i": in, "o": out}); err != nil {
		return nil, err
	}

	opts, log, err := c.options("reload")

	if err != nil {
		return log, err
	}

	_, err = trackbuilder.ReloadTracks(*in, *out, opts)
	return log, err
}

func runTransform(cmd string, args []string) (*logrus.Entry, error) {

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	c := addCommon(fs)
	in := fs.String("i", "", "Input track file")
	out := fs.String("o", "", "Output track file")
	imgIn := fs.String("img", "", "Directory of frame images to transform alongside the tracks")
	imgOut := fs.String("img-out", "", "Directory to write transformed frame images to")
	degrees := fs.String("deg", "", "Rotation in degrees, positive is counter-clockwise (rotate)")
	axis := fs.String("axis", "", "Reflection axis [horizontal|vertical] (reflect)")

	required := map[string]*string{"i": in, "o": out}

	if cmd == "rotate" {
		required["deg"] = degrees
	} else {
		required["axis"] = axis
	}

	if err := parse(fs, args, required); err != nil {
		return nil, err
	}

	opts, log, err := c.options(cmd)

	if err != nil {
		return log, err
	}

	images := trackbuilder.ImageDirs{In: *imgIn, Out: *imgOut}

	if cmd == "rotate" {
		deg, err := tracker.ParseDegrees(*degrees)

		if err != nil {
			return log, err
		}

		_, err = trackbuilder.RotateTracks(*in, *out, deg, images, opts)
		return log, err
	}

	ax, err := tracker.ParseAxis(*axis)

	if err != nil {
		return log, err
	}

	_, err = trackbuilder.ReflectTracks(*in, *out, ax, images, opts)
	return log, err
}

func runDraw(args []string) (*logrus.Entry, error) {

	fs := flag.NewFlagSet("draw", flag.ExitOnError)
	c := addCommon(fs)
	in := fs.String("i", "", "Input track file")
	imgDir := fs.String("img", "", "Directory of frame images")
	outDir := fs.String("o", "", "Directory to write rendered images to")
	workers := fs.Int("s", 4, "Number of images rendered in parallel")

	if err := parse(fs, args, map[string]*string{"i": in, "img": imgDir, "o": outDir}); err != nil {
		return nil, err
	}

	opts, log, err := c.options("draw")

	if err != nil {
		return log, err
	}

	_, err = trackbuilder.RenderTracks(*in, *imgDir, *outDir, *workers, opts)
	return log, err
}

func runPlot(args []string) (*logrus.Entry, error) {

	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	c := addCommon(fs)
	in := fs.String("i", "", "Input track file")
	out := fs.String("o", "", "Output chart file, format from extension [png|svg|pdf]")

	if err := parse(fs, args, map[string]*string{"i": in, "o": out}); err != nil {
		return nil, err
	}

	opts, log, err := c.options("plot")

	if err != nil {
		return log, err
	}

	_, err = trackbuilder.PlotTracks(*in, *out, opts)
	return log, err
}

func runStore(args []string) (*logrus.Entry, error) {

	fs := flag.NewFlagSet("store", flag.ExitOnError)
	c := addCommon(fs)
	db := fs.String("db", "", "SQLite database file")
	save := fs.String("save", "", "Track file to save")
	restore := fs.String("restore", "", "Run id to restore")
	out := fs.String("o", "", "Output track file when restoring")
	runID := fs.String("run", "", "Run id to save under, generated when empty")
	notes := fs.String("notes", "", "Notes saved with the run")
	list := fs.Bool("list", false, "List stored runs")

	if err := parse(fs, args, map[string]*string{"db": db}); err != nil {
		return nil, err
	}

	opts, log, err := c.options("store")

	if err != nil {
		return log, err
	}

	ctx := context.Background()

	switch {
	case *save != "":
		id, err := trackbuilder.SaveTracks(ctx, *save, *db, *runID, *notes, opts)
		if err == nil {
			fmt.Println(id)
		}
		return log, err

	case *restore != "":
		if *out == "" {
			return log, fmt.Errorf("restore needs an output file (-o)")
		}
		_, err := trackbuilder.RestoreTracks(ctx, *db, *restore, *out, opts)
		return log, err

	case *list:
		runs, err := trackbuilder.ListRuns(ctx, *db)
		if err != nil {
			return log, err
		}
		for _, r := range runs {
			fmt.Printf("%s\ttracks=%d\tsteps=%d\t%s\n", r.ID, r.Tracks, r.Steps, r.Notes)
		}
		return log, nil
	}

	fs.Usage()
	return log, fmt.Errorf("one of -save, -restore or -list is required")
}
