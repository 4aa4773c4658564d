// Command skillrtd is the runtime's demo host process: it wires the
// skill registry, command table, native bridge, router, execution kernel,
// and workflow engine together the way a real host would, then runs one
// blueprint end to end. It exists to prove the wiring compiles and
// behaves, not as a product surface — see spec.md's scope note on the CLI
// being "wiring examples," not a deliverable in its own right.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "goa.design/skillrt/skill/builtin/echo"
)

var (
	skillsDir   string
	persistPath string
	configPath  string
	threadID    string
	redisAddr   string
)

var rootCmd = &cobra.Command{
	Use:   "skillrtd",
	Short: "Run the skill runtime's demo host process",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&skillsDir, "skills-dir", "skills", "directory of SKILL.md-described skills to discover")
	rootCmd.PersistentFlags().StringVar(&persistPath, "persist-path", "", "on-disk path for the vector store (empty means in-memory only)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file overriding the defaults")
	rootCmd.PersistentFlags().StringVar(&threadID, "thread-id", "demo-thread", "checkpoint thread to run or resume")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "Redis address for the checkpoint read cache (empty disables caching)")
}

// Execute runs the command tree, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
