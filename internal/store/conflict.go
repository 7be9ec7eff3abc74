package store

// Choice is a conflict resolution picked by the prompter collaborator.
type Choice string

const (
	// ChoiceOverwrite proceeds with the save, discarding external edits.
	ChoiceOverwrite Choice = "overwrite"

	// ChoiceCancel aborts the save and keeps in-memory edits unsaved.
	ChoiceCancel Choice = "cancel"

	// ChoiceReload discards in-memory edits, reloads from disk, and aborts
	// the save.
	ChoiceReload Choice = "reloadFromDisk"
)

// Conflict describes an external modification detected before a write.
type Conflict struct {
	Path         string // config file path
	LastChecksum string // digest of the bytes last read/written by this store
	DiskChecksum string // digest of the bytes currently on disk
}

// Prompter resolves save conflicts. Resolve may block (it usually fronts a
// user dialog); the store calls it off the interactive path with no locks
// held, suspending only the save pipeline.
type Prompter interface {
	Resolve(c Conflict) Choice
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(c Conflict) Choice

func (f PrompterFunc) Resolve(c Conflict) Choice { return f(c) }
