/*
Copyright © 2022 Daniils Petrovs <thedanpetrov@gmail.com>

*/
package cmd

import (
	"fmt"

	"github.com/DaniruKun/cloak/config"
	"github.com/DaniruKun/cloak/imgproc"
	"github.com/DaniruKun/cloak/internal/log"
	"github.com/DaniruKun/cloak/session"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

const CalibrateWindow = "Calibrate HSV"

// Trackbar name, maximum and starting position. The start values suit a red cloth.
var calibrationBars = []struct {
	name  string
	max   int
	start int
}{
	{"LH", imgproc.MaxHue, 0},
	{"LS", imgproc.MaxSaturation, 120},
	{"LV", imgproc.MaxValue, 70},
	{"UH", imgproc.MaxHue, 10},
	{"US", imgproc.MaxSaturation, 255},
	{"UV", imgproc.MaxValue, 255},
}

// Turns the six trackbar positions (LH LS LV UH US UV) into a ColorRange
func rangeFromPositions(pos []int) imgproc.ColorRange {
	return imgproc.ColorRange{
		Lower: imgproc.HSV{H: pos[0], S: pos[1], V: pos[2]},
		Upper: imgproc.HSV{H: pos[3], S: pos[4], V: pos[5]},
	}
}

var calibrateCmd = &cobra.Command{
	Use:          "calibrate",
	Short:        "Find the HSV bounds of a cloak with sliders",
	Long:         `Shows the live frame, the colour mask and the masked frame while six sliders adjust the HSV bounds. Press 'q' to print the bounds.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logLevel, _ := cmd.Flags().GetString("log-level")
		log.Init(logLevel)

		reader, err := openReader(cameraFromFlags(cmd))
		if err != nil {
			return err
		}
		defer reader.Close()

		controls := gocv.NewWindow(CalibrateWindow)
		defer controls.Close()
		frameWindow := gocv.NewWindow("Frame")
		defer frameWindow.Close()
		maskWindow := gocv.NewWindow("Mask")
		defer maskWindow.Close()

		bars := make([]*gocv.Trackbar, len(calibrationBars))
		for i, b := range calibrationBars {
			bars[i] = controls.CreateTrackbar(b.name, b.max)
			bars[i].SetPos(b.start)
		}

		frame := gocv.NewMat()
		defer frame.Close()
		hsv := gocv.NewMat()
		defer hsv.Close()
		smooth := gocv.NewMat()
		defer smooth.Close()

		fmt.Println("Tip: ensure only the CLOAK shows up as white in 'Mask'. Press 'q' to finish.")

		pos := make([]int, len(bars))
		for {
			if ok := reader.Read(&frame); !ok {
				break
			}

			for i, bar := range bars {
				pos[i] = bar.GetPos()
			}
			r := rangeFromPositions(pos)

			gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)
			mask := imgproc.SegmentHSV(hsv, imgproc.NewRangeSet(r))
			gocv.MedianBlur(mask, &smooth, 5)
			mask.Close()

			res := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), frame.Rows(), frame.Cols(), frame.Type())
			frame.CopyToWithMask(&res, smooth)

			frameWindow.IMShow(frame)
			maskWindow.IMShow(smooth)
			controls.IMShow(res)
			res.Close()

			if session.CommandForKey(controls.WaitKey(1)) == session.CommandQuit {
				break
			}
		}

		r := rangeFromPositions(pos)
		fmt.Println("\nCopy these HSV bounds into config.json:")
		fmt.Printf("lower: [%d, %d, %d]  upper: [%d, %d, %d]\n",
			r.Lower.H, r.Lower.S, r.Lower.V, r.Upper.H, r.Upper.S, r.Upper.V)

		writePath, _ := cmd.Flags().GetString("write")
		if writePath == "" {
			return nil
		}
		doc := config.NewDocument(imgproc.NewRangeSet(r), r.Wraps())
		if err := config.Save(writePath, doc); err != nil {
			return err
		}
		log.Info("calibration saved", "path", writePath, "range", r.String())
		return nil
	},
}

func init() {
	addSourceFlags(calibrateCmd)
	calibrateCmd.Flags().StringP("write", "w", "", "save the final bounds as a config document")
	rootCmd.AddCommand(calibrateCmd)
}
