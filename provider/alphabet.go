package provider

import "github.com/korjavin/alphaquizbot/models"

var natoAlphabet = []models.AlphabetEntry{
	{ID: 1, Letter: "A", Code: "Alfa", Pronunciation: "AL-FAH"},
	{ID: 2, Letter: "B", Code: "Bravo", Pronunciation: "BRAH-VOH"},
	{ID: 3, Letter: "C", Code: "Charlie", Pronunciation: "CHAR-LEE"},
	{ID: 4, Letter: "D", Code: "Delta", Pronunciation: "DELL-TAH"},
	{ID: 5, Letter: "E", Code: "Echo", Pronunciation: "ECK-OH"},
	{ID: 6, Letter: "F", Code: "Foxtrot", Pronunciation: "FOKS-TROT"},
	{ID: 7, Letter: "G", Code: "Golf", Pronunciation: "GOLF"},
	{ID: 8, Letter: "H", Code: "Hotel", Pronunciation: "HOH-TELL"},
	{ID: 9, Letter: "I", Code: "India", Pronunciation: "IN-DEE-AH"},
	{ID: 10, Letter: "J", Code: "Juliett", Pronunciation: "JEW-LEE-ETT"},
	{ID: 11, Letter: "K", Code: "Kilo", Pronunciation: "KEY-LOH"},
	{ID: 12, Letter: "L", Code: "Lima", Pronunciation: "LEE-MAH"},
	{ID: 13, Letter: "M", Code: "Mike", Pronunciation: "MIKE"},
	{ID: 14, Letter: "N", Code: "November", Pronunciation: "NO-VEM-BER"},
	{ID: 15, Letter: "O", Code: "Oscar", Pronunciation: "OSS-CAH"},
	{ID: 16, Letter: "P", Code: "Papa", Pronunciation: "PAH-PAH"},
	{ID: 17, Letter: "Q", Code: "Quebec", Pronunciation: "KEH-BECK"},
	{ID: 18, Letter: "R", Code: "Romeo", Pronunciation: "ROW-ME-OH"},
	{ID: 19, Letter: "S", Code: "Sierra", Pronunciation: "SEE-AIR-RAH"},
	{ID: 20, Letter: "T", Code: "Tango", Pronunciation: "TANG-GO"},
	{ID: 21, Letter: "U", Code: "Uniform", Pronunciation: "YOU-NEE-FORM"},
	{ID: 22, Letter: "V", Code: "Victor", Pronunciation: "VIK-TAH"},
	{ID: 23, Letter: "W", Code: "Whiskey", Pronunciation: "WISS-KEY"},
	{ID: 24, Letter: "X", Code: "X-ray", Pronunciation: "ECKS-RAY"},
	{ID: 25, Letter: "Y", Code: "Yankee", Pronunciation: "YANG-KEY"},
	{ID: 26, Letter: "Z", Code: "Zulu", Pronunciation: "ZOO-LOO"},
}

// Alphabet returns a copy of the NATO phonetic alphabet
func Alphabet() []models.AlphabetEntry {
	return append([]models.AlphabetEntry(nil), natoAlphabet...)
}
