package git

// extraConfig holds ad-hoc "-c key=value" overrides to apply to a single
// git invocation, without touching the repository's persistent config.
type extraConfig struct {
	// Editor overrides core.editor for the command.
	Editor string

	// MergeConflictStyle overrides merge.conflictStyle for the command.
	MergeConflictStyle string
}

// Args renders the config overrides as "-c key=value" command line flags.
func (e extraConfig) Args() []string {
	var args []string
	if e.Editor != "" {
		args = append(args, "-c", "core.editor="+e.Editor)
	}
	if e.MergeConflictStyle != "" {
		args = append(args, "-c", "merge.conflictStyle="+e.MergeConflictStyle)
	}
	return args
}

// WithArgs inserts the config overrides into cmd's argument list,
// right after "git" and ahead of the subcommand name, and returns cmd.
func (e *extraConfig) WithArgs(cmd *gitCmd) *gitCmd {
	return cmd.WithConfig(*e)
}
