/*
Package atomicfile replaces whole files without leaving a partially
written file behind.

Data is written to a temporary file in the destination directory which,
on Close, is synced and renamed over the destination. If any write fails,
or Cancel is called first, the temporary file is removed and the
destination is left as it was.

linedb uses it for the compaction backup, for the rewritten log and for
exported snapshots:

	err := atomicfile.WriteFile("users.db", content)

or, for streaming writes:

	f, err := atomicfile.New(path)
	if err != nil {
		return err
	}
	// after a successful Close(), Cancel() is a no-op
	defer f.Cancel()
	if _, err = f.Write(d); err != nil {
		return err
	}
	return f.Close()
*/
package atomicfile
