package payment

// NoteLimit is the provider's maximum payment description length.
const NoteLimit = 25

// FormatNote builds a payment description from a fixed prefix and an
// identifying suffix (typically a short commit hash). The result never
// exceeds NoteLimit characters; when truncating, the leading
// identifying text is kept rather than cutting from the front.
func FormatNote(prefix, id string) string {
	note := prefix
	if id != "" {
		note = prefix + " " + id
	}
	if len(note) <= NoteLimit {
		return note
	}
	return note[:NoteLimit]
}
