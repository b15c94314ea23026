package query

import "strconv"

// ContentKey is the key of a single content item.
func ContentKey(id string) string {
	return Key("content", id)
}

// PopularKey is the key of one page of popular content of type contentType.
func PopularKey(contentType string, page int) string {
	return Key("popular", contentType, strconv.Itoa(page))
}
