package comicdao

func Banner() string {
	return "" +
		"   ______                _       ____  ___   ____ \n" +
		"  / ____/___  ____ ___  (_)____ / __ \\/   | / __ \\\n" +
		" / /   / __ \\/ __ `__ \\/ / ___// / / / /| |/ / / /\n" +
		"/ /___/ /_/ / / / / / / / /__ / /_/ / ___ / /_/ / \n" +
		"\\____/\\____/_/ /_/ /_/_/\\___//_____/_/  |_\\____/  \n" +
		"        WRITERS, ARTISTS AND CONCEPTS BY VOTE\n\n"
}
