package domain

// IssueStats summarizes the issue set by status.
type IssueStats struct {
	TotalIssues      int64
	ResolvedIssues   int64
	PendingIssues    int64
	InProgressIssues int64
}

// CategoryCount is the number of issues filed under one category.
type CategoryCount struct {
	Category Category
	Count    int64
}

// StatusCount is the number of issues in one status.
type StatusCount struct {
	Status IssueStatus
	Count  int64
}
