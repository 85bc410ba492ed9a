// Package characters holds the static catalog of draftable fighters.
package characters

// catalog is the full roster a draft pool is drawn from. Order is not
// significant; the shuffle service randomizes it per session.
var catalog = []string{
	"Naruto Uzumaki", "Sasuke Uchiha", "Sakura Haruno", "Kakashi Hatake",
	"Rock Lee", "Neji Hyuga", "Tenten", "Might Guy", "Shikamaru Nara",
	"Ino Yamanaka", "Choji Akimichi", "Asuma Sarutobi", "Hinata Hyuga",
	"Kiba Inuzuka", "Shino Aburame", "Kurenai Yuhi", "Gaara", "Temari",
	"Kankuro", "Itachi Uchiha", "Kisame Hoshigaki", "Deidara", "Sasori",
	"Hidan", "Kakuzu", "Orochimaru", "Kabuto Yakushi", "Jiraiya",
	"Tsunade", "Minato Namikaze", "Hashirama Senju", "Tobirama Senju",
	"Hiruzen Sarutobi", "Danzo Shimura", "Shisui Uchiha", "Obito Uchiha",
	"Madara Uchiha", "Pain/Nagato", "Konan", "Yamato", "Sai", "Killer Bee",
	"A (Fourth Raikage)", "Darui", "Mei Terumi", "Chojuro", "Onoki",
	"Kurotsuchi", "Kimimaro", "Zabuza Momochi", "Haku",
}

// Catalog returns a copy of the full character roster.
func Catalog() []string {
	out := make([]string, len(catalog))
	copy(out, catalog)
	return out
}

// Count returns the roster size.
func Count() int {
	return len(catalog)
}
