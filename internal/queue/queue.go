package queue

import "time"

// Queue is the ordered set of live jobs. It is not safe for concurrent use;
// the engine's control loop is its only writer and reader.
type Queue struct {
	jobs []*Job
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Len returns the number of queued jobs.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Push appends a job at the tail.
func (q *Queue) Push(job *Job) {
	q.jobs = append(q.jobs, job)
}

// Jobs returns the jobs in queue order. The slice is a copy; the jobs are not.
func (q *Queue) Jobs() []*Job {
	return append([]*Job(nil), q.jobs...)
}

// Get finds a job by identifier.
func (q *Queue) Get(id string) *Job {
	for _, job := range q.jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// ContainsSource reports whether a live job already covers path.
func (q *Queue) ContainsSource(path string) bool {
	for _, job := range q.jobs {
		if job.SourcePath == path {
			return true
		}
	}
	return false
}

// Remove drops a job from the queue.
func (q *Queue) Remove(id string) bool {
	for i, job := range q.jobs {
		if job.ID == id {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			return true
		}
	}
	return false
}

// Requeue moves a job to the tail with a fresh enqueue time. It is never put
// back at its original position.
func (q *Queue) Requeue(job *Job, now time.Time) {
	q.Remove(job.ID)
	job.EnqueuedAt = now
	q.jobs = append(q.jobs, job)
}

// Active returns the job currently in Printing, if any.
func (q *Queue) Active() *Job {
	for _, job := range q.jobs {
		if job.Status == StatusPrinting {
			return job
		}
	}
	return nil
}

// NextEligible returns the oldest job that may advance now. Jobs still
// waiting for conversion are eligible regardless of the gates; jobs ready to
// print are eligible only when printReady is true. Jobs inside their retry
// backoff window are skipped.
func (q *Queue) NextEligible(now time.Time, printReady bool) *Job {
	for _, job := range q.jobs {
		if job.Status != StatusPending && job.Status != StatusConverting {
			continue
		}
		if !job.NotBefore.IsZero() && now.Before(job.NotBefore) {
			continue
		}
		if job.NeedsConversion() || printReady {
			return job
		}
	}
	return nil
}

// CountByStatus tallies queued jobs per status.
func (q *Queue) CountByStatus() map[Status]int {
	counts := make(map[Status]int)
	for _, job := range q.jobs {
		counts[job.Status]++
	}
	return counts
}
