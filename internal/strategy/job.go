package strategy

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediaconv/internal/config"
)

// Job is one detected file and everything needed to convert it. Fields are
// fixed at creation; the destination is computed once from the
// configuration captured then.
type Job struct {
	id      string
	created time.Time
	source  string
	archive config.ArchivePolicy
	dest    string
	format  config.Format
}

// NewJob builds a job for source writing into outDir with format.
func NewJob(source, outDir string, archive config.ArchivePolicy, format config.Format) *Job {
	format = format.Clone()
	return &Job{
		id:      uuid.NewString(),
		created: time.Now(),
		source:  source,
		archive: archive,
		dest:    DestinationPath(source, outDir, format),
		format:  format,
	}
}

// JobFromConfig builds a job for source using the configured output folder,
// archive policy, and output format.
func JobFromConfig(cfg *config.Config, source string) *Job {
	return NewJob(source, cfg.OutputFolder(), cfg.ArchivePolicy(), cfg.OutputFormat())
}

// DestinationPath returns outDir/stem(source) with the format's extension.
// Without a container the source extension is kept.
func DestinationPath(source, outDir string, format config.Format) string {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = base
	}
	if formatExt := format.Extension(); formatExt != "" {
		ext = formatExt
	}
	return filepath.Join(outDir, stem+ext)
}

func (j *Job) ID() string                    { return j.id }
func (j *Job) Created() time.Time            { return j.created }
func (j *Job) Source() string                { return j.source }
func (j *Job) Archive() config.ArchivePolicy { return j.archive }
func (j *Job) Dest() string                  { return j.dest }

// Format returns a copy of the job's encoding options.
func (j *Job) Format() config.Format { return j.format.Clone() }

// Name returns the source base name.
func (j *Job) Name() string { return filepath.Base(j.source) }
