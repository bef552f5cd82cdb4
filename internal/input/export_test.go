package input

var CheckAvailable = available
