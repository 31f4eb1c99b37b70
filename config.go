package reflecs

import "strconv"

// Config holds the tunables Init parses from argv (spec §6). Unlike
// component registration — moved onto World per spec §9's redesign note
// so two worlds never collide on identity — these are scheduling/
// diagnostic hints with no bearing on storage correctness, so a single
// shared value safely mirrors the teacher's config.go pattern even with
// more than one World alive.
var Config WorldConfig

// WorldConfig is the parsed form of Init's arguments.
type WorldConfig struct {
	Threads int
	FPS     int
	Admin   bool
}

// parseArgs recognizes --threads N, --fps N and --admin. --admin is
// accepted but inert: no admin server is started (spec §6).
func parseArgs(args []string) (WorldConfig, error) {
	cfg := WorldConfig{Threads: 1, FPS: 60}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--threads":
			i++
			if i >= len(args) {
				return cfg, ParseError{Input: "--threads", Offset: i - 1, Reason: "missing value"}
			}
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 1 {
				return cfg, ParseError{Input: args[i], Offset: i, Reason: "threads must be a positive integer"}
			}
			cfg.Threads = n
		case "--fps":
			i++
			if i >= len(args) {
				return cfg, ParseError{Input: "--fps", Offset: i - 1, Reason: "missing value"}
			}
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 1 {
				return cfg, ParseError{Input: args[i], Offset: i, Reason: "fps must be a positive integer"}
			}
			cfg.FPS = n
		case "--admin":
			cfg.Admin = true
		default:
			return cfg, ParseError{Input: args[i], Offset: i, Reason: "unrecognized argument"}
		}
	}
	return cfg, nil
}
