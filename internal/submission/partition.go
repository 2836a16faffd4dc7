package submission

// Buckets holds submissions partitioned by status, each in input order.
type Buckets struct {
	Inbox     []Submission `json:"inbox"`
	Accepted  []Submission `json:"accepted"`
	Completed []Submission `json:"completed"`
	Trash     []Submission `json:"trash"`
}

// Get returns the bucket for a status.
func (b Buckets) Get(s Status) []Submission {
	switch s {
	case StatusAccepted:
		return b.Accepted
	case StatusCompleted:
		return b.Completed
	case StatusTrash:
		return b.Trash
	default:
		return b.Inbox
	}
}

// Len returns the total number of submissions across all buckets.
func (b Buckets) Len() int {
	return len(b.Inbox) + len(b.Accepted) + len(b.Completed) + len(b.Trash)
}

// Counts returns the size of each bucket keyed by status.
func (b Buckets) Counts() map[Status]int {
	return map[Status]int{
		StatusInbox:     len(b.Inbox),
		StatusAccepted:  len(b.Accepted),
		StatusCompleted: len(b.Completed),
		StatusTrash:     len(b.Trash),
	}
}

// Partition places every record in exactly one bucket by normalized status.
// Empty inbox records land in trash. Partition does not modify its input.
func Partition(records []Submission) Buckets {
	b := Buckets{
		Inbox:     []Submission{},
		Accepted:  []Submission{},
		Completed: []Submission{},
		Trash:     []Submission{},
	}
	for _, r := range records {
		st := NormalizeStatus(string(r.Status))
		if st == StatusInbox && r.IsEmpty() {
			st = StatusTrash
		}
		r.Status = st
		switch st {
		case StatusAccepted:
			b.Accepted = append(b.Accepted, r)
		case StatusCompleted:
			b.Completed = append(b.Completed, r)
		case StatusTrash:
			b.Trash = append(b.Trash, r)
		default:
			b.Inbox = append(b.Inbox, r)
		}
	}
	return b
}

// TrashEmptyInbox moves every empty inbox record to trash in place and
// returns how many were moved.
func TrashEmptyInbox(records []Submission) int {
	moved := 0
	for i := range records {
		if records[i].IsEmptyInbox() {
			records[i].Status = StatusTrash
			moved++
		}
	}
	return moved
}
