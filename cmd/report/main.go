// Command report renders an HTML report for a processing run from the
// detections database: speed distribution, per-class counts and the
// overspeed share.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/trafficlens/speedcam/internal/db"
)

var (
	dbPath  = flag.String("db", "detections.db", "Detections database path")
	runID   = flag.String("run", "", "Run id (empty selects the most recent run)")
	outPath = flag.String("out", "report.html", "Output HTML path")
)

const binWidthKmh = 10.0

func main() {
	flag.Parse()

	database, err := db.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	id := *runID
	if id == "" {
		runs, err := database.Runs(1)
		if err != nil || len(runs) == 0 {
			log.Fatalf("No runs found in %s", *dbPath)
		}
		id = runs[0].ID
	}

	stats, err := database.Stats(id)
	if err != nil {
		log.Fatalf("Failed to load stats: %v", err)
	}
	speeds, err := database.VehicleSpeeds(id)
	if err != nil {
		log.Fatalf("Failed to load speeds: %v", err)
	}
	classes, err := database.ClassCounts(id)
	if err != nil {
		log.Fatalf("Failed to load class counts: %v", err)
	}

	page := components.NewPage()
	page.SetPageTitle("Speed Report " + id)
	page.AddCharts(
		speedHistogram(id, speeds),
		classBar(classes),
		overspeedPie(stats),
	)

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create report file: %v", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}

	log.Printf("Report for run %s written to %s (%d vehicles, %d records)",
		id, *outPath, stats.Vehicles, stats.Records)
}

// speedHistogram bins each vehicle's peak speed into fixed-width buckets.
func speedHistogram(runID string, speeds []float64) *charts.Bar {
	sorted := append([]float64(nil), speeds...)
	sort.Float64s(sorted)

	subtitle := "no speed data"
	if len(sorted) > 0 {
		subtitle = fmt.Sprintf("p50=%.1f km/h p85=%.1f km/h",
			stat.Quantile(0.5, stat.Empirical, sorted, nil),
			stat.Quantile(0.85, stat.Empirical, sorted, nil))
	}

	var maxSpeed float64
	for _, s := range sorted {
		if s > maxSpeed {
			maxSpeed = s
		}
	}
	bins := int(maxSpeed/binWidthKmh) + 1
	counts := make([]int, bins)
	for _, s := range sorted {
		counts[int(s/binWidthKmh)]++
	}

	labels := make([]string, bins)
	data := make([]opts.BarData, bins)
	for i := 0; i < bins; i++ {
		labels[i] = fmt.Sprintf("%d-%d", i*int(binWidthKmh), (i+1)*int(binWidthKmh))
		data[i] = opts.BarData{Value: counts[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Speed distribution (km/h)", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("vehicles", data)
	return bar
}

func classBar(classes map[string]int) *charts.Bar {
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)

	data := make([]opts.BarData, len(names))
	for i, name := range names {
		data[i] = opts.BarData{Value: classes[name]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Records per vehicle class"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names)
	bar.AddSeries("records", data)
	return bar
}

func overspeedPie(stats *db.RunStats) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Overspeed share"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("records", []opts.PieData{
		{Name: "overspeed", Value: stats.OverspeedCount},
		{Name: "within limit", Value: stats.Records - stats.OverspeedCount},
	})
	return pie
}
