// Package archive builds the compress-and-cleanup steps for a finished pair.
package archive

import (
	"path/filepath"
	"slices"

	"github.com/Iron-Ham/ssbatch/internal/command"
)

// Suffix is appended to the clone ID to name the bundle.
const Suffix = ".ss.zip"

// Intermediates are the pipeline artifacts written next to the analysis
// prefix: alignment, its index, variant calls, regions and consensus.
var Intermediates = []string{
	command.AnalysisName + ".bam",
	command.AnalysisName + ".bam.bai",
	command.AnalysisName + ".vcf",
	command.AnalysisName + ".bed",
	command.AnalysisName + ".fasta",
}

// ArtifactNames returns every file that goes into the bundle: the pipeline
// intermediates followed by the two annotation files.
func ArtifactNames() []string {
	return append(slices.Clone(Intermediates), command.CallField, command.ScoreField)
}

// Name returns the archive file name for clone.
func Name(clone string) string {
	return clone + Suffix
}

// Plan is the archival step as two operations. Compress must succeed before
// Cleanup runs; a Cleanup failure leaves the archive in place.
type Plan struct {
	Compress command.CommandSpec
	Cleanup  command.CommandSpec
}

// Steps returns the plan in execution order.
func (p Plan) Steps() []command.CommandSpec {
	return []command.CommandSpec{p.Compress, p.Cleanup}
}

// Archive returns the path of the bundle the plan produces.
func (p Plan) Archive() string {
	return p.Compress.Path
}

// Bundle returns the plan that zips artifacts found in dir into
// dir/{clone}.ss.zip and then deletes them. workDir is the batch root dir
// is relative to. A nil artifacts list means ArtifactNames().
func Bundle(workDir, dir, clone string, artifacts []string) Plan {
	if artifacts == nil {
		artifacts = ArtifactNames()
	}
	members := make([]string, len(artifacts))
	for i, name := range artifacts {
		members[i] = filepath.Join(dir, name)
	}

	return Plan{
		Compress: command.CommandSpec{
			Kind:  command.KindArchive,
			Name:  command.StepCompress,
			Path:  filepath.Join(dir, Name(clone)),
			Paths: members,
			Dir:   workDir,
		},
		Cleanup: command.CommandSpec{
			Kind:  command.KindRemove,
			Name:  command.StepCleanup,
			Paths: slices.Clone(members),
			Dir:   workDir,
		},
	}
}
