package seed

// Curated word lists for realistic names. Free text comes from the faker.

var organizationNames = []struct{ name, address string }{
	{"Russian Technological University", "78 Vernadsky Ave, Moscow"},
	{"Moscow State University", "1 Leninskie Gory, Moscow"},
	{"Institute of Physics and Technology", "9 Institutsky Ln, Dolgoprudny"},
	{"Higher School of Economics", "20 Myasnitskaya St, Moscow"},
	{"Bauman Technical University", "5 2nd Baumanskaya St, Moscow"},
}

var divisionNames = []string{
	"Institute of Cybersecurity and Digital Technologies",
	"Institute of Information Technologies",
	"Institute of Artificial Intelligence",
	"Institute of Radio Engineering and Electronics",
	"Institute of Economics and Management",
	"Institute of Fine Chemical Technologies",
	"Institute of Physics and Technology",
	"Institute of International Relations",
}

var departmentNames = []string{
	"Cybersecurity",
	"Information Systems",
	"Artificial Intelligence",
	"Radio Engineering",
	"Electronics",
	"Economics",
	"Management",
	"Software Engineering",
	"Mathematics",
	"Physics",
	"Chemistry",
	"Foreign Languages",
}

var specialties = []struct{ code, name string }{
	{"09.03.01", "Informatics and Computer Engineering"},
	{"09.03.02", "Information Systems and Technologies"},
	{"09.03.03", "Applied Informatics"},
	{"09.03.04", "Software Engineering"},
	{"10.03.01", "Information Security"},
	{"11.03.02", "Infocommunication Technologies"},
	{"27.03.04", "Control in Technical Systems"},
	{"38.03.01", "Economics"},
	{"38.03.02", "Management"},
	{"38.03.05", "Business Informatics"},
}

var courseTopics = map[string][]string{
	"Programming Fundamentals": {"Introduction to Programming", "Variables and Data Types", "Conditionals", "Loops", "Functions", "Arrays", "Object-Oriented Programming"},
	"Databases":                {"Introduction to Databases", "The Relational Model", "SQL: SELECT", "SQL: JOIN", "Normalization", "Transactions", "Indexes", "NoSQL"},
	"Cybersecurity":            {"Security Fundamentals", "Cryptography", "Network Security", "Ethical Hacking", "Data Protection", "Legal Aspects"},
	"Artificial Intelligence":  {"History of AI", "Machine Learning", "Neural Networks", "Natural Language Processing", "Computer Vision", "Expert Systems"},
	"Philosophy":               {"Ancient Philosophy", "Medieval Philosophy", "Early Modern Philosophy", "German Classical Philosophy", "Contemporary Philosophy", "Socratic Dialogues"},
}

var courseNames = []string{
	"Programming Fundamentals",
	"Databases",
	"Operating Systems",
	"Computer Networks",
	"Cybersecurity",
	"Machine Learning",
	"Artificial Intelligence",
	"Theory of Algorithms",
	"Discrete Mathematics",
	"Probability Theory",
	"Economics",
	"Management",
	"Philosophy",
	"Physics",
}

var plannedHours = []int{32, 48, 64, 72, 96}

var materialTypes = []struct{ kind, description string }{
	{"Slides", "Lecture slides"},
	{"Notes", "Written lecture notes"},
	{"Recording", "Video recording of the lecture"},
	{"Assignment", "Homework on the lecture topic"},
	{"Quiz", "Review questions on the topic"},
	{"Further reading", "Recommended literature"},
}

var groupTypes = []string{"BSBO", "BIBO", "BPMO", "BFKO", "BINO", "BEKO"}

var degreeLetters = []string{"B", "M", "A"}

var buildings = []string{"A", "B", "C"}

const (
	techRegular = "Projector, computer"
	techSpecial = "VR equipment, 3D glasses"
)
