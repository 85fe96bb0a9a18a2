package cli

import (
	"errors"

	"github.com/riadafridishibly/parfind/config"
)

var (
	errExecTerminator = errors.New("Missing terminator ';' in 'exec' arguments list")
	errExecCommand    = errors.New("Missing command in 'exec' arguments list")
)

// ExtractExec removes "--exec CMD ARGS... ;" from args before flag parsing,
// since the command's own arguments may look like flags. It returns the
// remaining arguments and the command line without the terminator.
func ExtractExec(args []string) (rest, execArgs []string, err error) {
	for i, a := range args {
		if a == "--" {
			break
		}
		if a != "--exec" && a != "-exec" {
			continue
		}

		for j := i + 1; j < len(args); j++ {
			if args[j] != config.ExecTerminator {
				continue
			}
			execArgs = append([]string(nil), args[i+1:j]...)
			if len(execArgs) == 0 {
				return nil, nil, errExecCommand
			}
			rest = append(append([]string(nil), args[:i]...), args[j+1:]...)
			return rest, execArgs, nil
		}
		return nil, nil, errExecTerminator
	}

	return args, nil, nil
}
