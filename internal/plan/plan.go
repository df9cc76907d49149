// Package plan splits a resolved row budget into per-file allocations and
// per-worker tasks. Partitioning is fully deterministic: for fixed inputs
// the same plan comes out every time.
package plan

// Task is a contiguous, exclusive row range [Start, End) generated by one
// worker for one output file.
type Task struct {
	File   int // 0-indexed output file
	Worker int // 0-indexed worker slot within the file
	Start  int64
	End    int64
}

// Rows returns the number of rows covered by the task.
func (t Task) Rows() int64 {
	return t.End - t.Start
}

// Seed returns the deterministic synthesizer seed for the task, so the same
// plan reproduces the same data.
func (t Task) Seed() int64 {
	return int64(t.File)*1000 + int64(t.Worker)
}

// FileAlloc is the resolved row budget of one output file.
type FileAlloc struct {
	Index int
	Rows  int64
}

// Plan is the complete work assignment for a run. Tasks[i] holds file i's
// tasks ordered by worker index.
type Plan struct {
	Files []FileAlloc
	Tasks [][]Task
}

// TotalRows returns the sum of all file allocations.
func (p Plan) TotalRows() int64 {
	var total int64
	for _, f := range p.Files {
		total += f.Rows
	}
	return total
}

// AllTasks returns every task in dispatch order (file-major, then worker).
func (p Plan) AllTasks() []Task {
	var out []Task
	for _, tasks := range p.Tasks {
		out = append(out, tasks...)
	}
	return out
}

// Build splits totalRows evenly across files and each file across workers.
func Build(totalRows int64, files, workers int) Plan {
	return FromFileRows(SplitEven(totalRows, files), workers)
}

// FromFileRows builds a plan from explicit per-file row counts, as produced
// by per-file size estimation.
func FromFileRows(fileRows []int64, workers int) Plan {
	if workers < 1 {
		workers = 1
	}

	p := Plan{
		Files: make([]FileAlloc, len(fileRows)),
		Tasks: make([][]Task, len(fileRows)),
	}
	for i, rows := range fileRows {
		p.Files[i] = FileAlloc{Index: i, Rows: rows}
		p.Tasks[i] = splitTasks(i, rows, workers)
	}
	return p
}

// SplitEven divides total into parts that differ by at most one, with the
// remainder going to the earliest parts.
func SplitEven(total int64, parts int) []int64 {
	if parts < 1 {
		parts = 1
	}
	base := total / int64(parts)
	rem := total % int64(parts)

	out := make([]int64, parts)
	for i := range out {
		out[i] = base
		if int64(i) < rem {
			out[i]++
		}
	}
	return out
}

// splitTasks divides a file's rows into contiguous worker ranges. The
// remainder goes to the last worker's range; zero-row ranges are dropped.
func splitTasks(file int, rows int64, workers int) []Task {
	base := rows / int64(workers)
	rem := rows % int64(workers)

	tasks := make([]Task, 0, workers)
	var start int64
	for w := 0; w < workers; w++ {
		n := base
		if w == workers-1 {
			n += rem
		}
		if n == 0 {
			continue
		}
		tasks = append(tasks, Task{
			File:   file,
			Worker: w,
			Start:  start,
			End:    start + n,
		})
		start += n
	}
	return tasks
}
