package render

import (
	"fmt"
	"image"

	"github.com/swdee/go-trackbuilder/tracker"
	"gocv.io/x/gocv"
)

// TrackBoxes renders the bounding box and id label of every track step seen
// at the given frame
func TrackBoxes(img *gocv.Mat, tracks []*tracker.Track, frame int,
	classNames []string, font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0)

	for _, t := range tracks {

		det := t.StepAt(frame)

		if det == nil {
			continue
		}

		tl, br := det.Corners()
		rect := image.Rect(int(tl.X), int(tl.Y), int(br.X), int(br.Y))
		useClr := trackColor(t.Color(), t.ID())

		gocv.Rectangle(img, rect, useClr, lineThickness)

		boxLabels = append(boxLabels, font.label(labelText(classNames, det.Class(), t.ID()),
			rect.Min.X, rect.Min.Y, rect.Max.X, useClr, lineThickness))
	}

	// labels are drawn last so trail lines never cover them
	for _, l := range boxLabels {
		font.draw(img, l)
	}
}

// labelText returns the label for a track, its class name when known
// followed by the track id
func labelText(classNames []string, class, id int) string {
	if class >= 0 && class < len(classNames) && classNames[class] != "" {
		return fmt.Sprintf("%s %d", classNames[class], id)
	}
	return fmt.Sprintf("%d", id)
}
