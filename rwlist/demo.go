package rwlist

import (
	"errors"
	"fmt"
	"runtime"

	"concurrency_sandbox/concurrent"
	"concurrency_sandbox/narration"
)

// Entry is the Seq'th item appended by Writer.
type Entry struct {
	Writer int
	Seq    int
}

// CheckSnapshot fails if items could not have been produced by some prefix of
// the appends issued: every writer's entries must appear as 0, 1, 2, ... in
// order, and there can be no more than writers*appends of them.
func CheckSnapshot(items []Entry, writers, appends int) error {
	if len(items) > writers*appends {
		return fmt.Errorf("snapshot has %d entries, only %d appends issued", len(items), writers*appends)
	}
	next := make([]int, writers)
	for i, e := range items {
		if e.Writer < 0 || e.Writer >= writers {
			return fmt.Errorf("entry %d: unknown writer %d", i, e.Writer)
		}
		if e.Seq != next[e.Writer] {
			return fmt.Errorf("entry %d: writer %d seq %d, expected %d", i, e.Writer, e.Seq, next[e.Writer])
		}
		next[e.Writer]++
	}
	return nil
}

type Report struct {
	Len            int
	Expected       int
	Snapshots      int
	Torn           int
	MaxReaders     int64
	WriterOverlaps int64
}

// Run has writers append appends entries each while readers take reads
// snapshots each, all at once.
func Run(log *narration.Logger, readers, writers, appends, reads int) (Report, error) {
	list := New[Entry]()
	log.Infof("%d readers, %d writers x %d appends", readers, writers, appends)

	line := concurrent.NewStartLine()
	torn := make([]int, readers)
	var g concurrent.Group
	for w := 0; w < writers; w++ {
		g.Go(fmt.Sprintf("writer-%d", w), func() {
			line.Wait()
			for s := 0; s < appends; s++ {
				list.Append(Entry{Writer: w, Seq: s})
				log.Debugf("writer-%d appended %d", w, s)
				runtime.Gosched()
			}
		})
	}
	for r := 0; r < readers; r++ {
		g.Go(fmt.Sprintf("reader-%d", r), func() {
			line.Wait()
			for i := 0; i < reads; i++ {
				list.Read(func(items []Entry) {
					if err := CheckSnapshot(items, writers, appends); err != nil {
						log.Warnf("reader-%d: %v", r, err)
						torn[r]++
					}
				})
				runtime.Gosched()
			}
		})
	}
	line.AwaitWaiting(readers + writers)
	line.Release()
	err := g.Wait()

	rep := Report{
		Len:            list.Len(),
		Expected:       writers * appends,
		Snapshots:      readers * reads,
		MaxReaders:     list.MaxReaders(),
		WriterOverlaps: list.WriterOverlaps(),
	}
	for _, n := range torn {
		rep.Torn += n
	}
	errs := []error{err}
	if rep.Len != rep.Expected {
		errs = append(errs, fmt.Errorf("list has %d entries, expected %d", rep.Len, rep.Expected))
	}
	if rep.Torn > 0 {
		errs = append(errs, fmt.Errorf("%d torn snapshots", rep.Torn))
	}
	if rep.WriterOverlaps > 0 {
		errs = append(errs, fmt.Errorf("writers shared the lock %d times", rep.WriterOverlaps))
	}
	if err := CheckSnapshot(list.Snapshot(), writers, appends); err != nil {
		errs = append(errs, err)
	}
	log.Infof("final length %d (expected %d), %d snapshots, up to %d concurrent readers",
		rep.Len, rep.Expected, rep.Snapshots, rep.MaxReaders)
	return rep, errors.Join(errs...)
}
