package domain

import "fmt"

var departementCodes = buildDepartementCodes()

func buildDepartementCodes() map[string]struct{} {
	codes := make(map[string]struct{}, 101)
	for i := 1; i <= 95; i++ {
		if i == 20 {
			continue // Corsica is split into 2A and 2B
		}
		codes[fmt.Sprintf("%02d", i)] = struct{}{}
	}
	for _, c := range []string{"2A", "2B", "971", "972", "973", "974", "976"} {
		codes[c] = struct{}{}
	}
	return codes
}

// IsDepartementCode reports whether code is a French departement code.
func IsDepartementCode(code string) bool {
	_, ok := departementCodes[code]
	return ok
}
