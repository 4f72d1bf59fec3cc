// compileinfoprint is imported by the ngsio commands for the side effect of
// printing the compileinfo to os.Stderr at startup.
package compileinfoprint

import "github.com/carbocation/ngsio/compileinfo"

func init() {
	compileinfo.PrintToStdErr()
}
