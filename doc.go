/*
go-trackbuilder links per-frame object detections into per-object tracks.

Detections are loaded from YOLO style annotation files, one file per frame,
and associated frame by frame with a simple motion prediction heuristic.
Completed tracks are frozen into linked sequences and exported as a
LOCO/COCO style JSON document which can later be reloaded, rotated, reflected,
drawn onto the source images, plotted or saved to a SQLite store.

See the trackbuilder command in the example subdirectory for usage.
*/
package trackbuilder
