//go:build !unix

package diagnostic

import "os"

func terminalWidth(*os.File) int { return 0 }
