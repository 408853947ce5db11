package rangedl

import "os"

// prepareResume handles whole-file append-resume: when
// cfg.ContinueDownloadTest is set, the engine resumes by appending to an
// existing output file. startSize is overridden to the file's current
// size and the open mode is forced to append.
func (e *Engine) prepareResume() error {
	info, err := os.Stat(e.OutputPath())
	if err != nil {
		return &FileNotFoundError{Path: e.OutputPath()}
	}

	f, err := os.OpenFile(e.OutputPath(), os.O_WRONLY, 0644)
	if err != nil {
		return &FileNotFoundError{Path: e.OutputPath()}
	}
	f.Close()

	e.cfg.StartSize = info.Size()
	e.cfg.OpenType = OpenAppend
	return nil
}
