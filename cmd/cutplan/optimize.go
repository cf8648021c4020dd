package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/piwi3910/cutplan/internal/export"
	"github.com/piwi3910/cutplan/internal/importer"
	"github.com/piwi3910/cutplan/internal/logger"
	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/project"
	"github.com/piwi3910/cutplan/internal/report"
	"github.com/piwi3910/cutplan/internal/service"
)

type optimizeOptions struct {
	stock     string
	inventory string
	material  string
	outDir    string
	formats   []string
	save      string
}

func optimize(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("optimize", pflag.ExitOnError)
	var opts optimizeOptions
	fs.StringVar(&opts.stock, "stock", "", "stock list (CSV, XLSX, DXF) or inventory JSON")
	fs.StringVar(&opts.inventory, "inventory", project.DefaultInventoryPath(), "inventory used when the job has no stock")
	fs.StringVar(&opts.material, "material", "", "material assigned to imported entries without one")
	fs.StringVarP(&opts.outDir, "out", "o", ".", "output directory")
	fs.StringSliceVar(&opts.formats, "format", []string{"json", "pdf"}, "outputs to write: json, pdf, labels, xlsx, dxf")
	fs.StringVar(&opts.save, "save", "", "save the job with its result to this file")

	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("optimize needs exactly one input file")
	}
	log := logger.For(logger.ComponentCLI)

	job, err := loadJob(fs.Arg(0), opts, log)
	if err != nil {
		return err
	}

	svc, err := service.New(cfg)
	if err != nil {
		return err
	}
	t, err := svc.Submit(job.Request)
	if err != nil {
		return err
	}
	log.Infof("optimizing %d panel entries on %d stock entries", len(job.Request.Panels), len(job.Request.Stock))

	select {
	case <-t.Done():
	case <-ctx.Done():
		log.Info("interrupted, keeping the best plan so far")
		if err := svc.Stop(t.ID); err != nil {
			log.Debugf("stop: %v", err)
		}
		<-t.Done()
	}
	if err := t.Err(); err != nil {
		return err
	}

	resp, err := svc.Report(t.ID)
	if err != nil {
		return err
	}
	printSummary(os.Stdout, resp)

	if err := writeOutputs(opts, resp, log); err != nil {
		return err
	}
	if opts.save != "" {
		job.Result = &resp
		if err := project.SaveJob(opts.save, job); err != nil {
			return err
		}
	}
	return nil
}

// loadJob reads a job file, or builds a job from a panel list plus the
// stock flag or the inventory.
func loadJob(path string, opts optimizeOptions, log *zap.SugaredLogger) (project.Job, error) {
	var job project.Job
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var err error
		if job, err = project.LoadJob(path); err != nil {
			return job, err
		}
	} else {
		panels, err := importList(path, log)
		if err != nil {
			return job, err
		}
		job = project.NewJob(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), model.Request{Panels: panels})
	}

	switch {
	case opts.stock == "":
	case strings.EqualFold(filepath.Ext(opts.stock), ".json"):
		inv, err := project.LoadInventory(opts.stock)
		if err != nil {
			return job, err
		}
		job.Request.Stock = inv.Stock
	default:
		stock, err := importList(opts.stock, log)
		if err != nil {
			return job, err
		}
		job.Request.Stock = stock
	}

	if len(job.Request.Stock) == 0 && opts.inventory != "" {
		inv, err := project.LoadInventory(opts.inventory)
		if err != nil {
			return job, err
		}
		if inv.Apply(&job.Request) {
			log.Infof("using %d stock entries from %s", len(inv.Stock), opts.inventory)
		}
	}

	if opts.material != "" {
		setMaterial(job.Request.Panels, opts.material)
		setMaterial(job.Request.Stock, opts.material)
	}
	return job, nil
}

func importList(path string, log *zap.SugaredLogger) ([]model.PanelInput, error) {
	res := importer.Import(path)
	for _, w := range res.Warnings {
		log.Warnf("%s: %s", path, w)
	}
	for _, e := range res.Errors {
		log.Errorf("%s: %s", path, e)
	}
	if len(res.Panels) == 0 {
		return nil, fmt.Errorf("%s: no usable entries", path)
	}
	return res.Panels, nil
}

func setMaterial(entries []model.PanelInput, material string) {
	for i := range entries {
		if entries[i].Material == "" {
			entries[i].Material = material
		}
	}
}

func writeOutputs(opts optimizeOptions, resp report.Response, log *zap.SugaredLogger) error {
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return err
	}
	base := filepath.Join(opts.outDir, "cutplan-"+resp.TaskID[:8])

	for _, format := range opts.formats {
		var err error
		path := base + "." + format
		switch strings.ToLower(format) {
		case "json":
			err = writeReport(path, resp)
		case "pdf":
			err = export.PDFFile(path, resp)
		case "labels":
			path = base + "-labels.pdf"
			err = export.LabelsFile(path, resp)
		case "xlsx":
			err = export.XLSXFile(path, resp)
		case "dxf":
			err = export.DXFFile(path, resp)
		default:
			err = fmt.Errorf("unknown output format %q", format)
		}
		if errors.Is(err, export.ErrNothingToExport) {
			log.Warnf("skipping %s: %v", format, err)
			continue
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", format, err)
		}
		log.Infof("wrote %s", path)
	}
	return nil
}

func writeReport(path string, resp report.Response) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func printSummary(w io.Writer, resp report.Response) {
	s := resp.Summary
	fmt.Fprintf(w, "task %s %s in %dms\n", resp.TaskID, resp.Status, resp.ElapsedMillis)
	fmt.Fprintf(w, "  sheets %d, panels placed %d, not placed %d\n", s.Sheets, s.PlacedPanels, s.NoFitPanels)
	fmt.Fprintf(w, "  cuts %d (length %g), efficiency %.1f%%\n", s.Cuts, s.CutLength, s.Efficiency*100)
	for _, p := range resp.NoFit {
		fmt.Fprintf(w, "  no fit: panel %d %gx%g x%d\n", p.ID, p.Width, p.Height, p.Count)
	}
}
