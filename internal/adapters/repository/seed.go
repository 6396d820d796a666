package repository

// DefaultSubjects are created with zero progress for a class that has none.
var DefaultSubjects = []string{"Physics", "Mathematics", "Chemistry", "Biology"}

// DemoStudent is a leaderboard row inserted on first start.
type DemoStudent struct {
	Username string
	Name     string
	Score    int64
}

// DemoSubject is a subject row inserted on first start.
type DemoSubject struct {
	Name     string
	Class    int
	Progress int
}

// DemoStudents is the seed leaderboard. Ranks are computed on insert.
var DemoStudents = []DemoStudent{
	{Username: "elena_v", Name: "Elena V.", Score: 1200},
	{Username: "vasya", Name: "Vasya P.", Score: 1000},
	{Username: "evgeniy", Name: "Evgeniy S.", Score: 900},
	{Username: "maria_k", Name: "Maria K.", Score: 850},
	{Username: "alex_t", Name: "Alex T.", Score: 800},
}

// DemoSubjects is the seed subject catalog.
var DemoSubjects = []DemoSubject{
	{Name: "Physics", Class: 7, Progress: 95},
	{Name: "Mathematics", Class: 7, Progress: 88},
	{Name: "Chemistry", Class: 7, Progress: 78},
	{Name: "Physics", Class: 8, Progress: 75},
	{Name: "Physics", Class: 9, Progress: 60},
	{Name: "Biology", Class: 9, Progress: 85},
	{Name: "Informatics", Class: 10, Progress: 92},
}
