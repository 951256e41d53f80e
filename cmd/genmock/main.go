// Command genmock writes synthetic radar scan files for one date so the batch
// can be exercised without archive access. Each scan carries a single
// Gaussian storm cell over noise, plus a near-range clutter band with high
// Zdr and low ρHV that the clutter filter should remove.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/archive \
//	  -date 20220801 \
//	  -files 12 \
//	  -template cell_tracking_rhi
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/radar-scan-stats/internal/adapter/netcdf"
	"github.com/couchcryptid/radar-scan-stats/internal/domain"
)

const (
	rays        = 90
	bins        = 240
	gateSpacing = 125.0 // metres
	clutterEdge = 1500.0
	scanEvery   = 10 * time.Minute
	filePrefix  = "houcsapr2cfrS2.a1"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for generated scan files")
	dateStr := flag.String("date", "", "scan date, YYYYMMDD")
	files := flag.Int("files", 6, "number of scans to generate")
	template := flag.String("template", "cell_tracking_rhi", "template_name attribute")
	mix := flag.Bool("mix", false, "alternate between -template and ppi_volume")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" || *dateStr == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -date")
	}
	date, err := time.Parse("20060102", *dateStr)
	if err != nil {
		return fmt.Errorf("invalid -date: %w", err)
	}
	if *files < 1 {
		return fmt.Errorf("-files must be at least 1")
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	for i := range *files {
		start := date.Add(time.Duration(i)*scanEvery + 4*time.Second)
		tmpl := *template
		if *mix && i%2 == 1 {
			tmpl = "ppi_volume"
		}
		s := synthScan(rng, start, i, tmpl)
		name := fmt.Sprintf("%s.%s.%s.nc", filePrefix, start.Format("20060102"), start.Format("150405"))
		path := filepath.Join(*out, name)
		if err := netcdf.WriteScan(path, s); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}

		res := domain.Extract(s, domain.DefaultThresholds())
		log.Printf("%s: template=%s valid_gates=%d peak=%s", name, tmpl, res.Record.ValidGates, peakString(res.Peak))
	}
	log.Printf("wrote %d scans to %s", *files, *out)
	return nil
}

func synthScan(rng *rand.Rand, start time.Time, idx int, template string) domain.Scan {
	s := domain.Scan{
		Reflectivity:             domain.NewGrid(rays, bins),
		DifferentialReflectivity: domain.NewGrid(rays, bins),
		CopolCorrelation:         domain.NewGrid(rays, bins),
		ScanMode:                 "rhi",
		ScanName:                 fmt.Sprintf("cell_track_%02d", idx+1),
		TemplateName:             template,
	}
	azimuth := rng.Float64() * 360
	for r := range rays {
		s.Time = append(s.Time, start.Add(time.Duration(r)*250*time.Millisecond))
		s.Azimuth = append(s.Azimuth, azimuth)
		s.Elevation = append(s.Elevation, float64(r)*0.5)
	}
	for c := range bins {
		s.Range = append(s.Range, gateSpacing*float64(c+1))
	}

	// Storm cell centre and size in (ray, bin) space.
	cr := 10 + rng.Float64()*float64(rays-20)
	cc := 40 + rng.Float64()*float64(bins-80)
	sr := 4 + rng.Float64()*6
	sc := 10 + rng.Float64()*20
	peak := 35 + rng.Float64()*25

	for r := range rays {
		for c := range bins {
			d := (float64(r)-cr)*(float64(r)-cr)/(2*sr*sr) + (float64(c)-cc)*(float64(c)-cc)/(2*sc*sc)
			zh := peak*math.Exp(-d) - 5 + rng.NormFloat64()*2
			zdr := 0.8 + rng.NormFloat64()*0.3
			rho := 0.99 + rng.NormFloat64()*0.003

			if s.Range[c] <= clutterEdge {
				zh = 45 + rng.NormFloat64()*5
				zdr = 6 + rng.NormFloat64()
				rho = 0.7 + rng.NormFloat64()*0.05
			}
			s.DifferentialReflectivity.Set(r, c, zdr)
			s.CopolCorrelation.Set(r, c, math.Min(rho, 1))
			if zh >= -10 {
				// Gates below the noise floor stay missing.
				s.Reflectivity.Set(r, c, zh)
			}
		}
	}
	return s
}

func peakString(p domain.Peak) string {
	if !p.OK {
		return "undefined"
	}
	return fmt.Sprintf("%.1f dBZ at az=%.1f range=%.0fm", p.Value, p.Azimuth, p.Range)
}
