// Package bdv converts in-memory 3D volumes into the BigDataViewer
// format: a chunked container (HDF5 file or N5 directory) plus the
// SpimData v0.2 XML document next to it.
//
// A conversion writes one (setup, timepoint) view: the full-resolution
// volume as level 0, optional downsampled pyramid levels, the
// container-native resolution metadata, and the merged XML. Additional
// views merge into an existing dataset; rewriting a view that already
// holds data is governed by the Policy option.
package bdv

import (
	stderrors "errors"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-bdv/bdv/spimdata"
	"github.com/robert-malhotra/go-bdv/container"
	"github.com/robert-malhotra/go-bdv/container/h5"
	"github.com/robert-malhotra/go-bdv/container/n5"
	"github.com/robert-malhotra/go-bdv/internal/downsample"
	"github.com/robert-malhotra/go-bdv/internal/grid"
)

// ErrSetupExists signals that the target setup already holds data and the
// policy is PolicyFail.
var ErrSetupExists = stderrors.New("bdv: setup already exists")

// Convert writes vol as one view of the BDV dataset at out. The container
// format follows the output extension; the XML document is the .xml
// sibling. See the Option constructors for everything configurable.
func Convert(vol *Volume, out string, opts ...Option) (err error) {
	if vol == nil {
		return errors.New("bdv: nil volume")
	}
	if _, err := NewVolume(vol.DType, vol.Shape, vol.Data); err != nil {
		return err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	mode, err := downsample.ParseMode(o.mode)
	if err != nil {
		return errors.Wrap(err, "bdv")
	}
	if err := validateFactors(o.factors); err != nil {
		return errors.Wrap(err, "bdv")
	}
	for a := 0; a < 3; a++ {
		if o.chunks[a] <= 0 {
			return errors.Errorf("bdv: non-positive chunk shape %v", o.chunks)
		}
	}

	dt := vol.DType
	if o.dtype != "" {
		if !o.dtype.Valid() {
			return errors.Errorf("bdv: unsupported target data type %q", o.dtype)
		}
		dt = o.dtype
		if !container.CanWiden(vol.DType, dt) && !o.unsafeCast {
			return errors.Errorf("bdv: conversion %s to %s can lose information, pass WithUnsafeCast to clamp", vol.DType, dt)
		}
	}

	tgt, err := normalizeOutputPath(out)
	if err != nil {
		return err
	}

	doc, err := loadOrNewDocument(tgt)
	if err != nil {
		return err
	}

	setup := doc.NextSetupID()
	if o.setupID != nil {
		setup = *o.setupID
	}
	if setup < 0 || setup > 99 {
		return errors.Errorf("bdv: setup id %d outside [0, 99]", setup)
	}

	store, err := openOrCreateStore(tgt)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close container")
		}
	}()

	log := o.log.WithFields(logrus.Fields{
		"container": string(tgt.format),
		"setup":     setup,
		"timepoint": o.timepoint,
	})

	// Resolve before any overwrite removal so a setup that is being
	// replaced keeps its recorded attribute ids.
	attrs, err := spimdata.ResolveAttributes(doc, setup, o.attributes)
	if err != nil {
		return err
	}

	// The policy fires only when this exact view's data is present.
	// Appending a new timepoint to an existing setup is a normal merge.
	viewExists := false
	if _, oerr := store.OpenArray(store.DataKey(setup, o.timepoint, 0)); oerr == nil {
		viewExists = true
	} else if !stderrors.Is(oerr, container.ErrNotFound) {
		return errors.Wrap(oerr, "probe setup")
	}
	if viewExists {
		switch o.policy {
		case PolicySkip:
			log.Info("setup already present, skipping")
			return nil
		case PolicyOverwrite:
			log.Warn("setup already present, overwriting")
			if err := store.RemoveSetup(setup); err != nil {
				return errors.Wrap(err, "remove setup")
			}
			doc.RemoveView(setup)
		default:
			return errors.Wrapf(ErrSetupExists, "setup %d in %s", setup, tgt.dataPath)
		}
	}

	shapes := levelShapes(vol.Shape, o.factors)
	cum := cumulativeFactors(o.factors)

	total := 0
	for _, shape := range shapes {
		g, gerr := grid.New(shape, clipChunks(o.chunks, shape))
		if gerr != nil {
			return errors.Wrap(gerr, "pyramid grid")
		}
		total += g.Len()
	}
	done := 0
	onBlock := func() {
		done++
		if o.progress != nil {
			o.progress(done, total)
		}
	}

	log.WithFields(logrus.Fields{
		"shape":  vol.Shape,
		"dtype":  string(dt),
		"levels": len(shapes),
		"blocks": total,
	}).Info("converting volume")

	src, err := container.NewMemArray(vol.Shape, clipChunks(o.chunks, vol.Shape), vol.DType, vol.Data)
	if err != nil {
		return errors.Wrap(err, "wrap volume")
	}

	var prev container.Array = src
	for level, shape := range shapes {
		key := store.DataKey(setup, o.timepoint, level)
		arr, cerr := store.CreateArray(key, shape, clipChunks(o.chunks, shape), dt)
		if cerr != nil {
			return errors.Wrapf(cerr, "create level %d", level)
		}
		if level == 0 {
			err = transfer(prev, arr, o.unsafeCast, onBlock)
		} else {
			err = downsampleLevel(prev, arr, o.factors[level-1], mode, onBlock)
		}
		if err != nil {
			return errors.Wrapf(err, "level %d", level)
		}
		log.WithFields(logrus.Fields{"level": level, "shape": shape}).Debug("level written")
		prev = arr
	}

	md := container.Metadata{
		Resolution: o.resolution,
		Factors:    cum,
		DataType:   dt,
		Timepoints: []int{o.timepoint},
	}
	if err := store.WriteSetupMetadata(setup, md); err != nil {
		return errors.Wrap(err, "setup metadata")
	}

	view := spimdata.View{
		SetupID:    setup,
		Name:       o.setupName,
		Shape:      vol.Shape,
		Resolution: o.resolution,
		Unit:       o.unit,
		Attributes: attrs,
		Timepoint:  o.timepoint,
		Affines:    o.affines,
	}
	if err := doc.Merge(view); err != nil {
		return err
	}
	if err := doc.Save(tgt.xmlPath); err != nil {
		return err
	}

	log.Info("conversion finished")
	return nil
}

// loadOrNewDocument opens the XML sibling when one exists, verifying its
// container format, and starts a fresh document otherwise.
func loadOrNewDocument(tgt target) (*spimdata.Document, error) {
	if _, err := os.Stat(tgt.xmlPath); err == nil {
		doc, err := spimdata.Load(tgt.xmlPath)
		if err != nil {
			return nil, err
		}
		if doc.Format() != tgt.format {
			return nil, errors.Errorf("bdv: %s records format %s, output wants %s",
				tgt.xmlPath, doc.Format(), tgt.format)
		}
		return doc, nil
	}
	return spimdata.New(tgt.format, filepath.Base(tgt.dataPath)), nil
}

// openOrCreateStore opens the container at the target data path, creating
// it on first use.
func openOrCreateStore(tgt target) (container.Store, error) {
	_, statErr := os.Stat(tgt.dataPath)
	exists := statErr == nil
	if tgt.format == spimdata.FormatN5 {
		if exists {
			return n5.Open(tgt.dataPath)
		}
		return n5.Create(tgt.dataPath)
	}
	if exists {
		return h5.Open(tgt.dataPath)
	}
	return h5.Create(tgt.dataPath)
}
