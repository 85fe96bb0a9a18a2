package scanner

// classifier decides per entry whether the type hint from the directory
// stream is enough or a metadata call has to be made.
type classifier struct {
	// statAll is set when a filter, an action or the user needs full
	// metadata for every entry.
	statAll bool
	// statDirs is set when directories need their device id for the mount
	// boundary check.
	statDirs bool
}

func (c classifier) needsStat(hint EntryType) bool {
	switch {
	case c.statAll:
		return true
	case hint == TypeUnknown:
		return true
	case hint == TypeDir && c.statDirs:
		return true
	}
	return false
}

// classify builds the entry for name inside the open directory, performing
// the metadata call only when needsStat says so.
func (s *Scanner) classify(ds *dirStream, dirPath, name string, hint EntryType, depth uint16) Entry {
	e := Entry{
		Path:  joinPath(dirPath, name),
		Type:  hint,
		Depth: depth,
	}

	if hint == TypeUnknown {
		s.stats.UnknownFound.Add(1)
	}

	if !s.cls.needsStat(hint) {
		return e
	}

	s.stats.StatCalls.Add(1)

	meta, err := s.statAt(ds, name)
	if err != nil {
		e.StatErr = err
		s.stats.Errors.Add(1)
		s.log.Errorf("Failed to get attributes for path: %s; Error: %v", e.Path, err)
		return e
	}
	e.Meta = meta

	return e
}

func joinPath(dir, name string) string {
	if len(dir) > 0 && dir[len(dir)-1] == '/' {
		return dir + name
	}
	return dir + "/" + name
}
