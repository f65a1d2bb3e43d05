// Defaults for the command line can be stored in ~/.jobtimize, an ini file
// with sections matching the concerns of the tool:
//
//   [query]
//   scheduler = pbs
//   node-type = xfua
//
//   [output]
//   file = /var/www/html/jobs.png
//
// Flags given on the command line always win over the file.

package common

import (
	"errors"
	"os"
	"path"

	ini "github.com/lars-t-hansen/ini"
)

// MT: Constant after initialization
var (
	p     = ini.NewParser()
	store *ini.Store

	query             = p.AddSection("query")
	QueryScheduler    = query.AddString("scheduler")
	QueryNodeType     = query.AddString("node-type")
	output            = p.AddSection("output")
	OutputFile        = output.AddString("file")
	OutputWindowHours = output.AddString("window")
)

func init() {
	home := os.Getenv("HOME")
	if home == "" {
		return
	}
	fn := path.Join(path.Clean(home), ".jobtimize")
	input, err := os.Open(fn)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			Log.Errorf("Error in trying to open %s: %s", fn, err.Error())
		}
		return
	}
	defer input.Close()
	store, err = p.Parse(input)
	if err != nil {
		Log.Errorf("Error in trying to parse %s: %s", fn, err.Error())
		return
	}
}

func HasDefault(f *ini.Field) bool {
	return store != nil && f.Present(store)
}

func ApplyDefault(sp *string, f *ini.Field) bool {
	if *sp != "" || store == nil || !f.Present(store) {
		return false
	}
	*sp = os.ExpandEnv(f.StringVal(store))
	return true
}
